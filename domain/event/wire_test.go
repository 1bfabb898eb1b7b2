package event

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestEncode_Produces_Typed_Envelopes(t *testing.T) {
	req := require.New(t)

	data, err := Encode(PeerOnline{IdentityID: "alice-id"})

	req.NoError(err)
	req.JSONEq(`{"type":"peer-online","payload":{"identityId":"alice-id"}}`, string(data))
}

func TestDecode_Returns_Concrete_Value_Types(t *testing.T) {
	req := require.New(t)
	original := MessageReceived{
		ID:          uuid.New(),
		Content:     "hello",
		AuthorID:    "alice-id",
		AuthorEmail: "alice@example.com",
		CreatedAt:   time.Now().UTC().Truncate(time.Millisecond),
	}

	data, err := Encode(original)
	req.NoError(err)

	decoded, err := Decode(data)
	req.NoError(err)
	req.Equal(original, decoded)
}

func TestDecode_Rejects_Garbage(t *testing.T) {
	req := require.New(t)

	_, err := Decode([]byte("not json at all"))
	req.Error(err)

	_, err = Decode([]byte(`{"type":"made-up-kind","payload":{}}`))
	req.Error(err)

	_, err = Decode([]byte(`{"type":"roster","payload":"not-an-object"}`))
	req.Error(err)
}
