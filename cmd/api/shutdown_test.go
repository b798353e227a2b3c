package main

import (
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
)

type recordingCloser struct {
	name  string
	err   error
	order *[]string
}

func (c recordingCloser) Close() error {
	*c.order = append(*c.order, c.name)
	return c.err
}

func TestCloseAllReversesOrderAndCombinesErrors(t *testing.T) {
	var order []string
	dbErr := errors.New("db close")
	mongoErr := errors.New("mongo close")

	err := closeAll([]io.Closer{
		recordingCloser{name: "db", err: dbErr, order: &order},
		recordingCloser{name: "redis", order: &order},
		recordingCloser{name: "mongo", err: mongoErr, order: &order},
	})

	require.Equal(t, []string{"mongo", "redis", "db"}, order)
	require.ErrorIs(t, err, dbErr)
	require.ErrorIs(t, err, mongoErr)
	require.Len(t, multierr.Errors(err), 2)
}

func TestCloseAllNoErrors(t *testing.T) {
	var order []string
	require.NoError(t, closeAll(nil))
	require.NoError(t, closeAll([]io.Closer{recordingCloser{name: "db", order: &order}}))
	require.Equal(t, []string{"db"}, order)
}
