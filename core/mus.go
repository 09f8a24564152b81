package core

import (
	"time"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/varint"
)

// MUS serializers for the record types stored in the embedded key-value
// backend. Maintained by hand against the mus-go primitive serializers;
// field order is the wire format, so append new fields at the end only.
var (
	PostMUS         = postMUS{}
	CommentMUS      = commentMUS{}
	ChunkMUS        = chunkMUS{}
	CommitMarkerMUS = commitMarkerMUS{}
)

type postMUS struct{}

func (postMUS) Marshal(v Post, bs []byte) (n int) {
	n = ord.String.Marshal(v.ID, bs)
	n += marshalTimePtr(v.Timestamp, bs[n:])
	n += ord.String.Marshal(v.Author, bs[n:])
	n += ord.String.Marshal(v.Title, bs[n:])
	n += ord.String.Marshal(v.Body, bs[n:])
	n += varint.Int64.Marshal(v.TextLength, bs[n:])
	return n
}

func (postMUS) Unmarshal(bs []byte) (v Post, n int, err error) {
	var n1 int
	v.ID, n, err = ord.String.Unmarshal(bs)
	if err != nil {
		return
	}
	v.Timestamp, n1, err = unmarshalTimePtr(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Author, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Title, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Body, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.TextLength, n1, err = varint.Int64.Unmarshal(bs[n:])
	n += n1
	return
}

func (postMUS) Size(v Post) (size int) {
	size = ord.String.Size(v.ID)
	size += sizeTimePtr(v.Timestamp)
	size += ord.String.Size(v.Author)
	size += ord.String.Size(v.Title)
	size += ord.String.Size(v.Body)
	size += varint.Int64.Size(v.TextLength)
	return size
}

type commentMUS struct{}

func (commentMUS) Marshal(v Comment, bs []byte) (n int) {
	n = ord.String.Marshal(v.ID, bs)
	n += ord.String.Marshal(v.PostID, bs[n:])
	n += marshalTimePtr(v.Timestamp, bs[n:])
	n += ord.String.Marshal(v.Author, bs[n:])
	n += ord.String.Marshal(v.Text, bs[n:])
	n += marshalInt64Ptr(v.Priority, bs[n:])
	n += varint.Int64.Marshal(v.TextLength, bs[n:])
	return n
}

func (commentMUS) Unmarshal(bs []byte) (v Comment, n int, err error) {
	var n1 int
	v.ID, n, err = ord.String.Unmarshal(bs)
	if err != nil {
		return
	}
	v.PostID, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Timestamp, n1, err = unmarshalTimePtr(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Author, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Text, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Priority, n1, err = unmarshalInt64Ptr(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.TextLength, n1, err = varint.Int64.Unmarshal(bs[n:])
	n += n1
	return
}

func (commentMUS) Size(v Comment) (size int) {
	size = ord.String.Size(v.ID)
	size += ord.String.Size(v.PostID)
	size += sizeTimePtr(v.Timestamp)
	size += ord.String.Size(v.Author)
	size += ord.String.Size(v.Text)
	size += sizeInt64Ptr(v.Priority)
	size += varint.Int64.Size(v.TextLength)
	return size
}

type chunkMUS struct{}

func (chunkMUS) Marshal(v Chunk, bs []byte) (n int) {
	n = varint.Int64.Marshal(v.ID, bs)
	n += ord.String.Marshal(v.PostID, bs[n:])
	n += marshalTimePtr(v.Timestamp, bs[n:])
	n += ord.String.Marshal(v.Text, bs[n:])
	n += varint.Int64.Marshal(v.EngagementScore, bs[n:])
	n += varint.Int64.Marshal(v.CreatedAt.UnixMicro(), bs[n:])
	return n
}

func (chunkMUS) Unmarshal(bs []byte) (v Chunk, n int, err error) {
	var n1 int
	v.ID, n, err = varint.Int64.Unmarshal(bs)
	if err != nil {
		return
	}
	v.PostID, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Timestamp, n1, err = unmarshalTimePtr(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Text, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.EngagementScore, n1, err = varint.Int64.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	var us int64
	us, n1, err = varint.Int64.Unmarshal(bs[n:])
	n += n1
	v.CreatedAt = time.UnixMicro(us).UTC()
	return
}

func (chunkMUS) Size(v Chunk) (size int) {
	size = varint.Int64.Size(v.ID)
	size += ord.String.Size(v.PostID)
	size += sizeTimePtr(v.Timestamp)
	size += ord.String.Size(v.Text)
	size += varint.Int64.Size(v.EngagementScore)
	size += varint.Int64.Size(v.CreatedAt.UnixMicro())
	return size
}

type commitMarkerMUS struct{}

func (commitMarkerMUS) Marshal(v CommitMarker, bs []byte) (n int) {
	n = varint.Int64.Marshal(v.Commits, bs)
	n += varint.Int64.Marshal(v.Records, bs[n:])
	n += varint.Int64.Marshal(v.UpdatedAt.UnixMicro(), bs[n:])
	return n
}

func (commitMarkerMUS) Unmarshal(bs []byte) (v CommitMarker, n int, err error) {
	var n1 int
	v.Commits, n, err = varint.Int64.Unmarshal(bs)
	if err != nil {
		return
	}
	v.Records, n1, err = varint.Int64.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	var us int64
	us, n1, err = varint.Int64.Unmarshal(bs[n:])
	n += n1
	v.UpdatedAt = time.UnixMicro(us).UTC()
	return
}

func (commitMarkerMUS) Size(v CommitMarker) (size int) {
	size = varint.Int64.Size(v.Commits)
	size += varint.Int64.Size(v.Records)
	size += varint.Int64.Size(v.UpdatedAt.UnixMicro())
	return size
}

// Nullable fields are encoded as a presence flag followed by the value.
// Timestamps travel as microseconds since the Unix epoch and come back UTC.

func marshalTimePtr(t *time.Time, bs []byte) (n int) {
	if t == nil {
		return ord.Bool.Marshal(false, bs)
	}
	n = ord.Bool.Marshal(true, bs)
	n += varint.Int64.Marshal(t.UnixMicro(), bs[n:])
	return n
}

func unmarshalTimePtr(bs []byte) (t *time.Time, n int, err error) {
	present, n, err := ord.Bool.Unmarshal(bs)
	if err != nil || !present {
		return nil, n, err
	}
	us, n1, err := varint.Int64.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return nil, n, err
	}
	ts := time.UnixMicro(us).UTC()
	return &ts, n, nil
}

func sizeTimePtr(t *time.Time) int {
	if t == nil {
		return ord.Bool.Size(false)
	}
	return ord.Bool.Size(true) + varint.Int64.Size(t.UnixMicro())
}

func marshalInt64Ptr(v *int64, bs []byte) (n int) {
	if v == nil {
		return ord.Bool.Marshal(false, bs)
	}
	n = ord.Bool.Marshal(true, bs)
	n += varint.Int64.Marshal(*v, bs[n:])
	return n
}

func unmarshalInt64Ptr(bs []byte) (v *int64, n int, err error) {
	present, n, err := ord.Bool.Unmarshal(bs)
	if err != nil || !present {
		return nil, n, err
	}
	val, n1, err := varint.Int64.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return nil, n, err
	}
	return &val, n, nil
}

func sizeInt64Ptr(v *int64) int {
	if v == nil {
		return ord.Bool.Size(false)
	}
	return ord.Bool.Size(true) + varint.Int64.Size(*v)
}
