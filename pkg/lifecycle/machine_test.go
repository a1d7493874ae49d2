package lifecycle

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_Table(t *testing.T) {
	allowed := map[Status][]Status{
		Created:     {Started, Failed, Deleted},
		Started:     {Activated, Failed, Stopped, Deleted},
		Activated:   {Suspended, Updated, Deactivated, Failed, Stopped, Deleted},
		Suspended:   {Activated, Stopped, Deleted, Failed},
		Updated:     {Activated, Failed, Stopped, Deleted},
		Deactivated: {Started, Deleted},
		Stopped:     {Started, Deleted},
		Failed:      {Started, Deleted},
		Deleted:     nil,
	}

	for _, from := range AllStatuses {
		want := make(map[Status]bool)
		for _, to := range allowed[from] {
			want[to] = true
		}
		for _, to := range AllStatuses {
			err := Validate(from, to)
			if want[to] {
				assert.NoError(t, err, "%s -> %s", from, to)
				continue
			}
			require.Error(t, err, "%s -> %s", from, to)
			assert.True(t, errors.Is(err, ErrIllegalTransition))

			var te *TransitionError
			require.True(t, errors.As(err, &te))
			assert.Equal(t, from, te.From)
			assert.Equal(t, to, te.To)
		}
	}
}

func TestValidate_NoSkippingStart(t *testing.T) {
	err := Validate(Created, Activated)
	assert.ErrorIs(t, err, ErrIllegalTransition)
}

func TestIsTerminal(t *testing.T) {
	for _, s := range AllStatuses {
		assert.Equal(t, s == Deleted, IsTerminal(s), s.String())
	}
	assert.False(t, IsTerminal(Status(0)))
}

func TestAllowed_ReturnsCopy(t *testing.T) {
	next := Allowed(Created)
	require.NotEmpty(t, next)
	next[0] = Deleted

	assert.Equal(t, Started, Allowed(Created)[0])
}

func TestStatus_Strings(t *testing.T) {
	assert.Equal(t, "DEACTIVATED", Deactivated.String())
	assert.Equal(t, "UNKNOWN(42)", Status(42).String())

	s, err := ParseStatus(" suspended ")
	require.NoError(t, err)
	assert.Equal(t, Suspended, s)

	_, err = ParseStatus("PAUSED")
	assert.Error(t, err)
}

func TestStatus_Text(t *testing.T) {
	text, err := Updated.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "UPDATED", string(text))

	var s Status
	require.NoError(t, s.UnmarshalText([]byte("failed")))
	assert.Equal(t, Failed, s)

	_, err = Status(0).MarshalText()
	assert.Error(t, err)
}

func TestIdentity(t *testing.T) {
	id, err := ParseIdentity("acme/rule-node/n1")
	require.NoError(t, err)
	assert.Equal(t, Identity{Tenant: "acme", Kind: "rule-node", ID: "n1"}, id)
	assert.Equal(t, "acme/rule-node/n1", id.String())

	tests := []string{"", "acme/rule-node", "acme//n1", "a/b/c/d"}
	for _, key := range tests {
		_, err := ParseIdentity(key)
		assert.Error(t, err, key)
	}

	assert.Error(t, Identity{Tenant: "a/b", Kind: "k", ID: "i"}.Validate())
}
