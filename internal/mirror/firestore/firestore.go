// Package firestore implements the remote mirror on Cloud Firestore.
package firestore

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/and161185/fitkeeper/internal/convert"
	"github.com/and161185/fitkeeper/internal/errs"
	"github.com/and161185/fitkeeper/internal/model"
)

// Mirror mirrors entities into per-kind Firestore collections, documents
// keyed by entity id and filterable by the owner field.
type Mirror struct {
	client *firestore.Client
	prefix string
}

// New constructs a mirror. prefix namespaces collections (e.g. per environment).
func New(client *firestore.Client, prefix string) *Mirror {
	return &Mirror{client: client, prefix: prefix}
}

func (m *Mirror) collection(kind model.Kind) *firestore.CollectionRef {
	name := string(kind)
	if m.prefix != "" {
		name = m.prefix + "_" + name
	}
	return m.client.Collection(name)
}

// classify maps a Firestore RPC error to the stable taxonomy. Unknown
// codes are treated as transient: retrying is the safe default.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	switch status.Code(err) {
	case codes.NotFound:
		return fmt.Errorf("%s: %w", op, errs.ErrNotFound)
	case codes.Unauthenticated, codes.PermissionDenied, codes.InvalidArgument, codes.FailedPrecondition:
		return fmt.Errorf("%s: %v: %w", op, err, errs.ErrPermanent)
	default:
		return fmt.Errorf("%s: %v: %w", op, err, errs.ErrTransient)
	}
}

// Fetch returns one document by key.
func (m *Mirror) Fetch(ctx context.Context, kind model.Kind, key string) (convert.Document, error) {
	snap, err := m.collection(kind).Doc(key).Get(ctx)
	if err != nil {
		return nil, classify(fmt.Sprintf("fetch %s/%s", kind, key), err)
	}
	return convert.Document(snap.Data()), nil
}

// Push overwrites one document (last write wins at the entity level).
func (m *Mirror) Push(ctx context.Context, kind model.Kind, key string, doc convert.Document) error {
	_, err := m.collection(kind).Doc(key).Set(ctx, map[string]any(doc))
	return classify(fmt.Sprintf("push %s/%s", kind, key), err)
}

// Delete removes one document; deleting an absent document succeeds.
func (m *Mirror) Delete(ctx context.Context, kind model.Kind, key string) error {
	_, err := m.collection(kind).Doc(key).Delete(ctx)
	if err != nil && status.Code(err) == codes.NotFound {
		return nil
	}
	return classify(fmt.Sprintf("delete %s/%s", kind, key), err)
}

// FetchAllByOwner returns every document of the kind owned by ownerID.
// The users collection is keyed by the owner itself.
func (m *Mirror) FetchAllByOwner(ctx context.Context, kind model.Kind, ownerID string) ([]convert.Document, error) {
	op := fmt.Sprintf("fetch all %s by %s", kind, ownerID)
	if kind == model.KindUser {
		doc, err := m.Fetch(ctx, kind, ownerID)
		if errors.Is(err, errs.ErrNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		return []convert.Document{doc}, nil
	}
	iter := m.collection(kind).Where("user_id", "==", ownerID).Documents(ctx)
	defer iter.Stop()

	var out []convert.Document
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, classify(op, err)
		}
		out = append(out, convert.Document(snap.Data()))
	}
	return out, nil
}
