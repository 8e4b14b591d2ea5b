package badger

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/blobvault/blobvault/pkg/store"
)

// Serialization strategy
// ======================
//
// Records are stored as a JSON envelope: flexible for schema evolution and
// easy to inspect when debugging a database directly. Content rides inside
// the envelope, optionally zstd-compressed; the Codec field records how the
// bytes were encoded so reads stay correct when the compression setting
// changes between restarts.
//
// Meta values are raw string bytes, no envelope.

// codecZstd marks zstd-compressed content in an envelope.
const codecZstd = "zstd"

// recordEnvelope is the stored representation of a record.
type recordEnvelope struct {
	Name        string            `json:"name"`
	Content     []byte            `json:"content"`
	Codec       string            `json:"codec,omitempty"`
	ETag        string            `json:"etag"`
	Modified    time.Time         `json:"modified"`
	MIME        string            `json:"mime,omitempty"`
	Encoding    string            `json:"encoding,omitempty"`
	Description string            `json:"description,omitempty"`
	Tag         string            `json:"tag,omitempty"`
	Tag2        string            `json:"tag2,omitempty"`
	Tag3        string            `json:"tag3,omitempty"`
	Data        map[string]string `json:"data,omitempty"`
}

// codec compresses and decompresses record content. The zero value passes
// content through untouched.
type codec struct {
	compress bool
	enc      *zstd.Encoder
	dec      *zstd.Decoder
}

func newCodec(compress bool) (*codec, error) {
	// The decoder is always needed: the database may hold compressed
	// envelopes written under a previous configuration.
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("creating zstd decoder: %w", err)
	}

	c := &codec{compress: compress, dec: dec}
	if compress {
		enc, err := zstd.NewWriter(nil)
		if err != nil {
			return nil, fmt.Errorf("creating zstd encoder: %w", err)
		}
		c.enc = enc
	}
	return c, nil
}

// encodeRecord serializes a record into envelope bytes, compressing content
// when the codec is configured to.
func (c *codec) encodeRecord(rec *store.Record) ([]byte, error) {
	env := recordEnvelope{
		Name:        rec.Name,
		Content:     rec.Content,
		ETag:        rec.ETag,
		Modified:    rec.Modified,
		MIME:        rec.MIME,
		Encoding:    rec.Encoding,
		Description: rec.Description,
		Tag:         rec.Tag,
		Tag2:        rec.Tag2,
		Tag3:        rec.Tag3,
		Data:        rec.Data,
	}
	if c.compress {
		env.Content = c.enc.EncodeAll(rec.Content, nil)
		env.Codec = codecZstd
	}

	buf, err := json.Marshal(&env)
	if err != nil {
		return nil, fmt.Errorf("encoding record %q: %w", rec.Name, err)
	}
	return buf, nil
}

// decodeRecord deserializes envelope bytes back into a record.
func (c *codec) decodeRecord(val []byte) (*store.Record, error) {
	var env recordEnvelope
	if err := json.Unmarshal(val, &env); err != nil {
		return nil, fmt.Errorf("decoding record envelope: %w", err)
	}

	content := env.Content
	switch env.Codec {
	case "":
	case codecZstd:
		out, err := c.dec.DecodeAll(env.Content, nil)
		if err != nil {
			return nil, fmt.Errorf("decompressing record %q: %w", env.Name, err)
		}
		content = out
	default:
		return nil, fmt.Errorf("record %q: unknown content codec %q", env.Name, env.Codec)
	}

	return &store.Record{
		Name:        env.Name,
		Content:     content,
		ETag:        env.ETag,
		Modified:    env.Modified,
		MIME:        env.MIME,
		Encoding:    env.Encoding,
		Description: env.Description,
		Tag:         env.Tag,
		Tag2:        env.Tag2,
		Tag3:        env.Tag3,
		Data:        env.Data,
	}, nil
}

// decodeMetadata deserializes an envelope into the metadata projection
// without decompressing content. Size reporting still needs the uncompressed
// length, so compressed envelopes consult the zstd frame header instead of
// inflating the payload.
func (c *codec) decodeMetadata(val []byte) (*store.Metadata, error) {
	var env recordEnvelope
	if err := json.Unmarshal(val, &env); err != nil {
		return nil, fmt.Errorf("decoding record envelope: %w", err)
	}

	size := int64(len(env.Content))
	if env.Codec == codecZstd {
		// DecodeAll is avoided on the metadata path; the frame header
		// carries the original size for our single-frame encodings.
		header := zstd.Header{}
		if err := header.Decode(env.Content); err != nil {
			return nil, fmt.Errorf("reading zstd header for %q: %w", env.Name, err)
		}
		if header.HasFCS {
			size = int64(header.FrameContentSize)
		} else {
			out, err := c.dec.DecodeAll(env.Content, nil)
			if err != nil {
				return nil, fmt.Errorf("decompressing record %q: %w", env.Name, err)
			}
			size = int64(len(out))
		}
	}

	return &store.Metadata{
		Name:        env.Name,
		Size:        size,
		ETag:        env.ETag,
		Modified:    env.Modified,
		MIME:        env.MIME,
		Encoding:    env.Encoding,
		Description: env.Description,
		Tag:         env.Tag,
		Tag2:        env.Tag2,
		Tag3:        env.Tag3,
		Data:        env.Data,
	}, nil
}
