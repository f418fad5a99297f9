package storage

import (
	"fmt"
	"slices"
	"time"

	"github.com/mus-format/mus-go"
	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/raw"
	"github.com/mus-format/mus-go/varint"
	"github.com/poiesic/attest/core"
)

// Serializers for the persisted record types. Field order is part of the
// on-disk format: append new fields at the end only.
var (
	DocumentMUS       mus.Serializer[core.Document]       = documentMUS{}
	EntityMUS         mus.Serializer[core.Entity]         = entityMUS{}
	EdgeMUS           mus.Serializer[core.Edge]           = edgeMUS{}
	EnhancedResultMUS mus.Serializer[core.EnhancedResult] = enhancedResultMUS{}
	AnswerMUS         mus.Serializer[CachedAnswer]        = answerMUS{}
)

// CachedAnswer is a synthesized answer kept in the response cache.
type CachedAnswer struct {
	Text       string
	Confidence float64
}

var (
	stringsMUS   = sliceMUS[string]{elem: ord.String}
	relationsMUS = sliceMUS[core.Relation]{elem: relationMUS{}}
	stringMapMUS = mapMUS[string]{elem: ord.String}
	scoreMapMUS  = mapMUS[float64]{elem: raw.Float64}
)

// timeMUS encodes timestamps as Unix microseconds; the zero time is 0.
type timeMUS struct{}

func (timeMUS) Marshal(t time.Time, bs []byte) int {
	return varint.Int64.Marshal(timeToMicro(t), bs)
}

func (timeMUS) Unmarshal(bs []byte) (time.Time, int, error) {
	us, n, err := varint.Int64.Unmarshal(bs)
	if err != nil {
		return time.Time{}, n, err
	}
	if us == 0 {
		return time.Time{}, n, nil
	}
	return time.UnixMicro(us).UTC(), n, nil
}

func (timeMUS) Size(t time.Time) int {
	return varint.Int64.Size(timeToMicro(t))
}

func (timeMUS) Skip(bs []byte) (int, error) {
	return varint.Int64.Skip(bs)
}

func timeToMicro(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMicro()
}

// sliceMUS encodes a length followed by the elements.
type sliceMUS[T any] struct {
	elem mus.Serializer[T]
}

func (s sliceMUS[T]) Marshal(vs []T, bs []byte) (n int) {
	n = varint.Int.Marshal(len(vs), bs)
	for _, v := range vs {
		n += s.elem.Marshal(v, bs[n:])
	}
	return n
}

func (s sliceMUS[T]) Unmarshal(bs []byte) ([]T, int, error) {
	length, n, err := varint.Int.Unmarshal(bs)
	if err != nil {
		return nil, n, err
	}
	if length < 0 || length > len(bs) {
		return nil, n, fmt.Errorf("%w: slice length %d", ErrTruncatedData, length)
	}
	if length == 0 {
		return nil, n, nil
	}
	vs := make([]T, length)
	for i := range vs {
		v, m, err := s.elem.Unmarshal(bs[n:])
		n += m
		if err != nil {
			return nil, n, err
		}
		vs[i] = v
	}
	return vs, n, nil
}

func (s sliceMUS[T]) Size(vs []T) (size int) {
	size = varint.Int.Size(len(vs))
	for _, v := range vs {
		size += s.elem.Size(v)
	}
	return size
}

func (s sliceMUS[T]) Skip(bs []byte) (int, error) {
	_, n, err := s.Unmarshal(bs)
	return n, err
}

// mapMUS encodes string-keyed maps with keys in sorted order so equal maps
// encode to equal bytes.
type mapMUS[V any] struct {
	elem mus.Serializer[V]
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func (s mapMUS[V]) Marshal(m map[string]V, bs []byte) (n int) {
	n = varint.Int.Marshal(len(m), bs)
	for _, k := range sortedKeys(m) {
		n += ord.String.Marshal(k, bs[n:])
		n += s.elem.Marshal(m[k], bs[n:])
	}
	return n
}

func (s mapMUS[V]) Unmarshal(bs []byte) (map[string]V, int, error) {
	length, n, err := varint.Int.Unmarshal(bs)
	if err != nil {
		return nil, n, err
	}
	if length < 0 || length > len(bs) {
		return nil, n, fmt.Errorf("%w: map length %d", ErrTruncatedData, length)
	}
	if length == 0 {
		return nil, n, nil
	}
	m := make(map[string]V, length)
	for i := 0; i < length; i++ {
		k, kn, err := ord.String.Unmarshal(bs[n:])
		n += kn
		if err != nil {
			return nil, n, err
		}
		v, vn, err := s.elem.Unmarshal(bs[n:])
		n += vn
		if err != nil {
			return nil, n, err
		}
		m[k] = v
	}
	return m, n, nil
}

func (s mapMUS[V]) Size(m map[string]V) (size int) {
	size = varint.Int.Size(len(m))
	for k, v := range m {
		size += ord.String.Size(k) + s.elem.Size(v)
	}
	return size
}

func (s mapMUS[V]) Skip(bs []byte) (int, error) {
	_, n, err := s.Unmarshal(bs)
	return n, err
}

// fieldReader threads the offset and first error through a sequence of
// field decodes.
type fieldReader struct {
	bs  []byte
	n   int
	err error
}

func readField[T any](r *fieldReader, ser mus.Serializer[T], dst *T) {
	if r.err != nil {
		return
	}
	v, m, err := ser.Unmarshal(r.bs[r.n:])
	r.n += m
	if err != nil {
		r.err = err
		return
	}
	*dst = v
}

type relationMUS struct{}

func (relationMUS) Marshal(v core.Relation, bs []byte) (n int) {
	n = ord.String.Marshal(v.Subject, bs)
	n += ord.String.Marshal(v.Predicate, bs[n:])
	n += ord.String.Marshal(v.Object, bs[n:])
	return n
}

func (relationMUS) Unmarshal(bs []byte) (v core.Relation, n int, err error) {
	r := &fieldReader{bs: bs}
	readField(r, ord.String, &v.Subject)
	readField(r, ord.String, &v.Predicate)
	readField(r, ord.String, &v.Object)
	return v, r.n, r.err
}

func (relationMUS) Size(v core.Relation) int {
	return ord.String.Size(v.Subject) + ord.String.Size(v.Predicate) + ord.String.Size(v.Object)
}

func (s relationMUS) Skip(bs []byte) (int, error) {
	_, n, err := s.Unmarshal(bs)
	return n, err
}

type documentMUS struct{}

func (documentMUS) Marshal(v core.Document, bs []byte) (n int) {
	n = ord.String.Marshal(v.ID, bs)
	n += ord.String.Marshal(v.Title, bs[n:])
	n += ord.String.Marshal(v.Content, bs[n:])
	n += ord.String.Marshal(v.URL, bs[n:])
	n += timeMUS{}.Marshal(v.Timestamp, bs[n:])
	n += stringMapMUS.Marshal(v.Metadata, bs[n:])
	n += stringsMUS.Marshal(v.Entities, bs[n:])
	n += relationsMUS.Marshal(v.Relations, bs[n:])
	return n
}

func (documentMUS) Unmarshal(bs []byte) (v core.Document, n int, err error) {
	r := &fieldReader{bs: bs}
	readField(r, ord.String, &v.ID)
	readField(r, ord.String, &v.Title)
	readField(r, ord.String, &v.Content)
	readField(r, ord.String, &v.URL)
	readField[time.Time](r, timeMUS{}, &v.Timestamp)
	readField[map[string]string](r, stringMapMUS, &v.Metadata)
	readField[[]string](r, stringsMUS, &v.Entities)
	readField[[]core.Relation](r, relationsMUS, &v.Relations)
	return v, r.n, r.err
}

func (documentMUS) Size(v core.Document) int {
	return ord.String.Size(v.ID) +
		ord.String.Size(v.Title) +
		ord.String.Size(v.Content) +
		ord.String.Size(v.URL) +
		timeMUS{}.Size(v.Timestamp) +
		stringMapMUS.Size(v.Metadata) +
		stringsMUS.Size(v.Entities) +
		relationsMUS.Size(v.Relations)
}

func (s documentMUS) Skip(bs []byte) (int, error) {
	_, n, err := s.Unmarshal(bs)
	return n, err
}

type entityMUS struct{}

func (entityMUS) Marshal(v core.Entity, bs []byte) (n int) {
	n = varint.Uint64.Marshal(uint64(v.Id), bs)
	n += ord.String.Marshal(v.Name, bs[n:])
	n += ord.String.Marshal(v.Type, bs[n:])
	return n
}

func (entityMUS) Unmarshal(bs []byte) (v core.Entity, n int, err error) {
	r := &fieldReader{bs: bs}
	var id uint64
	readField(r, varint.Uint64, &id)
	readField(r, ord.String, &v.Name)
	readField(r, ord.String, &v.Type)
	v.Id = core.ID(id)
	return v, r.n, r.err
}

func (entityMUS) Size(v core.Entity) int {
	return varint.Uint64.Size(uint64(v.Id)) + ord.String.Size(v.Name) + ord.String.Size(v.Type)
}

func (s entityMUS) Skip(bs []byte) (int, error) {
	_, n, err := s.Unmarshal(bs)
	return n, err
}

type edgeMUS struct{}

func (edgeMUS) Marshal(v core.Edge, bs []byte) (n int) {
	n = varint.Uint64.Marshal(uint64(v.From), bs)
	n += varint.Uint64.Marshal(uint64(v.To), bs[n:])
	n += ord.String.Marshal(v.Predicate, bs[n:])
	n += ord.String.Marshal(v.DocumentID, bs[n:])
	return n
}

func (edgeMUS) Unmarshal(bs []byte) (v core.Edge, n int, err error) {
	r := &fieldReader{bs: bs}
	var from, to uint64
	readField(r, varint.Uint64, &from)
	readField(r, varint.Uint64, &to)
	readField(r, ord.String, &v.Predicate)
	readField(r, ord.String, &v.DocumentID)
	v.From, v.To = core.ID(from), core.ID(to)
	return v, r.n, r.err
}

func (edgeMUS) Size(v core.Edge) int {
	return varint.Uint64.Size(uint64(v.From)) +
		varint.Uint64.Size(uint64(v.To)) +
		ord.String.Size(v.Predicate) +
		ord.String.Size(v.DocumentID)
}

func (s edgeMUS) Skip(bs []byte) (int, error) {
	_, n, err := s.Unmarshal(bs)
	return n, err
}

type enhancedResultMUS struct{}

func (enhancedResultMUS) Marshal(v core.EnhancedResult, bs []byte) (n int) {
	n = ord.String.Marshal(v.DocumentID, bs)
	n += ord.String.Marshal(v.Title, bs[n:])
	n += ord.String.Marshal(v.Content, bs[n:])
	n += ord.String.Marshal(v.Snippet, bs[n:])
	n += ord.String.Marshal(v.URL, bs[n:])
	n += raw.Float64.Marshal(v.CombinedScore, bs[n:])
	n += scoreMapMUS.Marshal(v.SourceScores, bs[n:])
	n += stringsMUS.Marshal(v.SourceTypes, bs[n:])
	n += stringMapMUS.Marshal(v.Metadata, bs[n:])
	return n
}

func (enhancedResultMUS) Unmarshal(bs []byte) (v core.EnhancedResult, n int, err error) {
	r := &fieldReader{bs: bs}
	readField(r, ord.String, &v.DocumentID)
	readField(r, ord.String, &v.Title)
	readField(r, ord.String, &v.Content)
	readField(r, ord.String, &v.Snippet)
	readField(r, ord.String, &v.URL)
	readField(r, raw.Float64, &v.CombinedScore)
	readField[map[string]float64](r, scoreMapMUS, &v.SourceScores)
	readField[[]string](r, stringsMUS, &v.SourceTypes)
	readField[map[string]string](r, stringMapMUS, &v.Metadata)
	return v, r.n, r.err
}

func (enhancedResultMUS) Size(v core.EnhancedResult) int {
	return ord.String.Size(v.DocumentID) +
		ord.String.Size(v.Title) +
		ord.String.Size(v.Content) +
		ord.String.Size(v.Snippet) +
		ord.String.Size(v.URL) +
		raw.Float64.Size(v.CombinedScore) +
		scoreMapMUS.Size(v.SourceScores) +
		stringsMUS.Size(v.SourceTypes) +
		stringMapMUS.Size(v.Metadata)
}

func (s enhancedResultMUS) Skip(bs []byte) (int, error) {
	_, n, err := s.Unmarshal(bs)
	return n, err
}

type answerMUS struct{}

func (answerMUS) Marshal(v CachedAnswer, bs []byte) (n int) {
	n = ord.String.Marshal(v.Text, bs)
	n += raw.Float64.Marshal(v.Confidence, bs[n:])
	return n
}

func (answerMUS) Unmarshal(bs []byte) (v CachedAnswer, n int, err error) {
	r := &fieldReader{bs: bs}
	readField(r, ord.String, &v.Text)
	readField(r, raw.Float64, &v.Confidence)
	return v, r.n, r.err
}

func (answerMUS) Size(v CachedAnswer) int {
	return ord.String.Size(v.Text) + raw.Float64.Size(v.Confidence)
}

func (s answerMUS) Skip(bs []byte) (int, error) {
	_, n, err := s.Unmarshal(bs)
	return n, err
}
