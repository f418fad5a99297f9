// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package badger

import (
	"context"
	"encoding/binary"
	"fmt"
	"slices"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/attest/core"
	"github.com/poiesic/attest/storage"
)

// GraphRepository implements storage.GraphRepository for BadgerDB.
//
// Entities are keyed by the hash of their normalized name, so the same
// name always resolves to the same node regardless of which document
// introduced it.
type GraphRepository struct {
	backend *Backend
}

var _ storage.GraphRepository = (*GraphRepository)(nil)

// NewGraphRepository creates a new GraphRepository.
func NewGraphRepository(backend *Backend) *GraphRepository {
	return &GraphRepository{backend: backend}
}

// UpsertEntities adds entities that do not exist yet.
func (r *GraphRepository) UpsertEntities(ctx context.Context, entities ...*core.Entity) ([]*core.Entity, error) {
	stored := make([]*core.Entity, 0, len(entities))
	err := r.backend.Update(ctx, func(tx *badger.Txn) error {
		for _, entity := range entities {
			normalized := core.NormalizeEntityName(entity.Name)
			if normalized == "" {
				return fmt.Errorf("%w: entity name is empty", storage.ErrInvalidQuery)
			}
			id := core.IDFromContent(normalized)

			existing, err := readEntity(tx, makeEntityKey(id))
			if err != nil {
				return err
			}
			if existing != nil {
				stored = append(stored, existing)
				continue
			}

			entity.Id = id
			entity.Type = strings.ToLower(strings.TrimSpace(entity.Type))
			if err := tx.Set(makeEntityKey(id), storage.MarshalEntity(entity)); err != nil {
				return err
			}
			if err := tx.Set(makeEntityNameKey(normalized), binary.BigEndian.AppendUint64(nil, uint64(id))); err != nil {
				return err
			}
			stored = append(stored, entity)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return stored, nil
}

// GetEntity retrieves a single entity by ID.
func (r *GraphRepository) GetEntity(ctx context.Context, id core.ID) (*core.Entity, error) {
	var result *core.Entity
	err := r.backend.View(ctx, func(tx *badger.Txn) error {
		var err error
		result, err = readEntity(tx, makeEntityKey(id))
		if err != nil {
			return err
		}
		if result == nil {
			return storage.ErrNotFound
		}
		return nil
	})
	return result, err
}

// FindEntitiesByName returns the entities whose normalized name matches one
// of names. Each entity is returned once.
func (r *GraphRepository) FindEntitiesByName(ctx context.Context, names ...string) ([]*core.Entity, error) {
	var result []*core.Entity
	seen := make(map[core.ID]struct{}, len(names))
	err := r.backend.View(ctx, func(tx *badger.Txn) error {
		for _, name := range names {
			normalized := core.NormalizeEntityName(name)
			if normalized == "" {
				continue
			}
			item, err := tx.Get(makeEntityNameKey(normalized))
			if err == badger.ErrKeyNotFound {
				continue
			}
			if err != nil {
				return err
			}
			var id core.ID
			if err := item.Value(func(val []byte) error {
				if len(val) != 8 {
					return storage.ErrTruncatedData
				}
				id = core.ID(binary.BigEndian.Uint64(val))
				return nil
			}); err != nil {
				return err
			}
			if _, dup := seen[id]; dup {
				continue
			}
			entity, err := readEntity(tx, makeEntityKey(id))
			if err != nil {
				return err
			}
			if entity != nil {
				seen[id] = struct{}{}
				result = append(result, entity)
			}
		}
		return nil
	})
	return result, err
}

// AddEdges stores edges under both endpoints.
func (r *GraphRepository) AddEdges(ctx context.Context, edges ...*core.Edge) error {
	return r.backend.Update(ctx, func(tx *badger.Txn) error {
		for _, edge := range edges {
			if edge.From == edge.To {
				continue
			}
			value := storage.MarshalEdge(edge)
			if err := tx.Set(makeEdgeKey(edge.From, edge.To, edge.Predicate), value); err != nil {
				return err
			}
			if err := tx.Set(makeEdgeKey(edge.To, edge.From, edge.Predicate), value); err != nil {
				return err
			}
		}
		return nil
	})
}

// Neighbors returns every edge touching id, ordered by the opposite
// endpoint.
func (r *GraphRepository) Neighbors(ctx context.Context, id core.ID) ([]*core.Edge, error) {
	var result []*core.Edge
	err := r.backend.View(ctx, func(tx *badger.Txn) error {
		return scanPrefix(tx, makePartialEdgeKey(id), false, func(_, val []byte) error {
			edge, err := storage.UnmarshalEdge(val)
			if err != nil {
				return err
			}
			result = append(result, edge)
			return nil
		})
	})
	return result, err
}

// AddMentions records that the documents mention the entity.
func (r *GraphRepository) AddMentions(ctx context.Context, entityID core.ID, docIDs ...string) error {
	return r.backend.Update(ctx, func(tx *badger.Txn) error {
		for _, docID := range docIDs {
			if err := tx.Set(makeMentionKey(entityID, docID), nil); err != nil {
				return err
			}
		}
		return nil
	})
}

// GetMentions returns the IDs of documents mentioning the entity in
// lexicographic order.
func (r *GraphRepository) GetMentions(ctx context.Context, entityID core.ID) ([]string, error) {
	var result []string
	err := r.backend.View(ctx, func(tx *badger.Txn) error {
		return scanPrefix(tx, makePartialMentionKey(entityID), true, func(suffix, _ []byte) error {
			result = append(result, string(suffix))
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return slices.Compact(result), nil
}

// readEntity reads an entity, returning nil if the key is absent.
func readEntity(tx *badger.Txn, key []byte) (*core.Entity, error) {
	item, err := tx.Get(key)
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, nil
		}
		return nil, err
	}

	var entity *core.Entity
	err = item.Value(func(val []byte) error {
		var err error
		entity, err = storage.UnmarshalEntity(val)
		return err
	})
	return entity, err
}
