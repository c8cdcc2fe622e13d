package authctx

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrincipalRoundTrip(t *testing.T) {
	ctx := WithPrincipal(context.Background(), &Principal{Kind: KindAdmin, UID: "u1", CompanyID: "c1"})

	p, ok := PrincipalFrom(ctx)
	require.True(t, ok)
	assert.True(t, p.IsAdmin())
	assert.False(t, p.IsCardholder())
	assert.Equal(t, "c1", p.CompanyID)
}

func TestPrincipalMissing(t *testing.T) {
	_, ok := PrincipalFrom(context.Background())
	assert.False(t, ok)

	_, ok = PrincipalFrom(WithPrincipal(context.Background(), &Principal{Kind: KindCardholder}))
	assert.False(t, ok, "principal without uid is not authenticated")

	var nilP *Principal
	assert.False(t, nilP.IsAdmin())
}

func TestRequestID(t *testing.T) {
	assert.Empty(t, RequestID(context.Background()))
	assert.Equal(t, "r-1", RequestID(WithRequestID(context.Background(), "r-1")))
}
