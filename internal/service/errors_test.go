package service

import (
	"errors"
	"fmt"
	"testing"

	"github.com/haierkeys/notely-service/internal/domain"
	"github.com/haierkeys/notely-service/pkg/code"

	"github.com/stretchr/testify/assert"
)

func TestErrorCode(t *testing.T) {
	cases := []struct {
		err  error
		want *code.Code
	}{
		{nil, nil},
		{fmt.Errorf("load: %w", domain.ErrNoteNotFound), code.ErrorNoteNotFound},
		{domain.ErrNoteNotSaved, code.ErrorNoteNotSaved},
		{ErrSessionNotFound, code.ErrorSessionNotFound},
		{ErrSessionClosed, code.ErrorSessionClosed},
		{domain.NewPersistenceError("insert", errors.New("disk full")), code.ErrorDBQuery},
		{errors.New("other"), nil},
	}
	for _, tc := range cases {
		assert.Same(t, tc.want, ErrorCode(tc.err), "%v", tc.err)
	}
}
