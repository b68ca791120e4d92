package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type codecClient struct {
	ID     int    `json:"id" msgpack:"id"`
	Name   string `json:"name" msgpack:"name"`
	Status string `json:"status" msgpack:"status"`
}

func TestNewCodec(t *testing.T) {
	tests := []struct {
		name     string
		codec    string
		wantName string
		wantErr  bool
	}{
		{name: "default is json", codec: "", wantName: CodecJSON},
		{name: "json", codec: CodecJSON, wantName: CodecJSON},
		{name: "msgpack", codec: CodecMsgpack, wantName: CodecMsgpack},
		{name: "cbor", codec: CodecCBOR, wantName: CodecCBOR},
		{name: "unknown", codec: "gob", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewCodec(tt.codec, 0)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, c.Name())
		})
	}
}

func TestCodecs_EntryHeaderIgnoresPayload(t *testing.T) {
	for _, name := range []string{CodecJSON, CodecMsgpack, CodecCBOR} {
		t.Run(name, func(t *testing.T) {
			c, err := NewCodec(name, 0)
			require.NoError(t, err)

			entry := Entry[[]codecClient]{
				Key:  "clients:1:10",
				Data: []codecClient{{ID: 1, Name: "Acme", Status: "active"}},
				Metadata: Metadata{
					Version:   "1",
					Tags:      []string{"clients"},
					CreatedAt: 1000,
					ExpiresAt: 2000,
				},
			}
			raw, err := c.Marshal(entry)
			require.NoError(t, err)

			var hdr entryHeader
			require.NoError(t, c.Unmarshal(raw, &hdr))
			assert.Equal(t, entry.Key, hdr.Key)
			assert.Equal(t, entry.Metadata, hdr.Metadata)

			var back Entry[[]codecClient]
			require.NoError(t, c.Unmarshal(raw, &back))
			assert.Equal(t, entry, back)
		})
	}
}

func TestLimitCodec(t *testing.T) {
	c, err := NewCodec(CodecJSON, 16)
	require.NoError(t, err)

	var v map[string]string
	require.NoError(t, c.Unmarshal([]byte(`{"a":"b"}`), &v))

	err = c.Unmarshal([]byte(`{"a":"bbbbbbbbbbbbbbbbbbbb"}`), &v)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "payload too large")
}
