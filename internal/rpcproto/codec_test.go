package rpcproto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"distorage/internal/domain"
)

func TestCodecRoundTrip(t *testing.T) {
	c := Codec{}
	in := &FindSuccessorResponse{IP: "10.0.0.1:7001", Ok: true, Msg: "ok"}

	data, err := c.Marshal(in)
	require.NoError(t, err)

	out := new(FindSuccessorResponse)
	require.NoError(t, c.Unmarshal(data, out))
	assert.Equal(t, in, out)
	assert.Equal(t, CodecName, c.Name())
}

func TestValueDTORoundTrip(t *testing.T) {
	v := domain.Value{Kind: domain.KindPath, Path: "alice/notes.txt"}
	dto := ValueToDTO(v)
	assert.Equal(t, v, dto.ToValue())
}
