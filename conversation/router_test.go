package conversation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRouter_Match(t *testing.T) {
	req := require.New(t)
	var called []string
	record := func(name string) HandlerFunc[string] {
		return func(context.Context, string, int64) error {
			called = append(called, name)
			return nil
		}
	}
	// local_ is registered first and is a prefix of local_settings_
	router := NewRouter[string]().
		Exact("my_locals", record("my_locals")).
		Prefixed("local_", record("local")).
		Prefixed("local_settings_", record("settings")).
		Prefixed("peer_", record("peer"))

	cases := []struct {
		data string
		want string
		id   int64
	}{
		{"my_locals", "my_locals", 0},
		{"local_12", "local", 12},
		{"local_settings_12", "settings", 12},
		{"peer_7", "peer", 7},
	}
	for _, tc := range cases {
		handler, id, ok := router.Match(tc.data)
		req.True(ok, tc.data)
		req.Equal(tc.id, id, tc.data)
		req.NoError(handler(context.Background(), "", id))
		req.Equal(tc.want, called[len(called)-1], tc.data)
	}
}

func TestRouter_Match_Rejects(t *testing.T) {
	req := require.New(t)
	router := NewRouter[string]().
		Prefixed("local_", func(context.Context, string, int64) error { return nil })

	for _, data := range []string{"", "local_", "local_x", "local_12x", "xlocal_12", "local_99999999999999999999"} {
		_, _, ok := router.Match(data)
		req.False(ok, data)
	}
}
