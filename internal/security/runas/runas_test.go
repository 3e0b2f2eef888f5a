package runas

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

var alice = Principal{Name: "alice", Roles: []string{"ROLE_USER"}}

func TestRunAs_RestoresAfterSuccess(t *testing.T) {
	h := &Holder{}
	h.Set(&alice)

	err := RunAs(h, System, func() error {
		cur := h.Current()
		require.Equal(t, "system", cur.Name)
		require.True(t, cur.HasRole("ROLE_ADMIN"))
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, "alice", h.Current().Name)
}

func TestRunAs_RestoresAfterError(t *testing.T) {
	h := &Holder{}
	h.Set(&alice)
	boom := errors.New("boom")

	err := RunAs(h, System, func() error { return boom })
	require.ErrorIs(t, err, boom)
	require.Equal(t, "alice", h.Current().Name)
}

func TestRunAs_RestoresAfterPanic(t *testing.T) {
	h := &Holder{}
	require.Panics(t, func() {
		_ = RunAs(h, System, func() error { panic("kaboom") })
	})
	require.Nil(t, h.Current())
}

func TestRunAs_NestedRestoresEnclosing(t *testing.T) {
	h := &Holder{}
	h.Set(&alice)
	provisioner := Principal{Name: "provisioner", Roles: []string{"ROLE_PROVISION"}}

	err := RunAs(h, System, func() error {
		err := RunAs(h, provisioner, func() error {
			require.Equal(t, "provisioner", h.Current().Name)
			return nil
		})
		require.Equal(t, "system", h.Current().Name, "inner call restores the enclosing identity")
		return err
	})
	require.NoError(t, err)
	require.Equal(t, "alice", h.Current().Name)
}

func TestCall(t *testing.T) {
	h := &Holder{}
	name, err := Call(h, System, func() (string, error) {
		return h.Current().Name, nil
	})
	require.NoError(t, err)
	require.Equal(t, "system", name)
	require.Nil(t, h.Current())
}

func TestRunAsContext(t *testing.T) {
	ctx := WithPrincipal(context.Background(), alice)

	err := RunAsContext(ctx, System, func(inner context.Context) error {
		p, ok := FromContext(inner)
		require.True(t, ok)
		require.Equal(t, "system", p.Name)
		return errors.New("fail")
	})
	require.Error(t, err)

	p, ok := FromContext(ctx)
	require.True(t, ok)
	require.Equal(t, "alice", p.Name)

	_, ok = FromContext(context.Background())
	require.False(t, ok)
}
