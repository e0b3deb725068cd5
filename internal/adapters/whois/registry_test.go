package whois

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const registered = `   Domain Name: JOESPIZZA.COM
   Registry Domain ID: 1234567_DOMAIN_COM-VRSN
   Registrar WHOIS Server: whois.example-registrar.com
   Registrar URL: http://www.example-registrar.com
   Updated Date: 2024-01-01T00:00:00Z
   Creation Date: 2009-03-12T17:22:05Z
   Registry Expiry Date: 2027-03-12T17:22:05Z
   Registrar: Example Registrar, LLC
   Registrar IANA ID: 9999
   Domain Status: clientTransferProhibited https://icann.org/epp#clientTransferProhibited
   Name Server: NS1.EXAMPLE.COM
   Name Server: NS2.EXAMPLE.COM
   DNSSEC: unsigned
`

func registryWith(fetch func(string) (string, error)) *Registry {
	return &Registry{fetch: fetch, logger: zap.NewNop()}
}

func TestLookup_Registered(t *testing.T) {
	r := registryWith(func(d string) (string, error) {
		assert.Equal(t, "joespizza.com", d)
		return registered, nil
	})
	reg, err := r.Lookup(t.Context(), "joespizza.com")
	require.NoError(t, err)
	assert.True(t, reg.Registered)
	assert.Equal(t, "Example Registrar, LLC", reg.Registrar)
	assert.Equal(t, "joespizza.com", reg.Domain)
}

func TestLookup_NoMatch(t *testing.T) {
	r := registryWith(func(string) (string, error) {
		return "No match for \"JOES-PIZZA.COM\".\n>>> Last update of whois database: 2026-10-16T00:00:00Z <<<\n", nil
	})
	reg, err := r.Lookup(t.Context(), "joes-pizza.com")
	require.NoError(t, err)
	assert.False(t, reg.Registered)
}

func TestLookup_TransportError(t *testing.T) {
	boom := errors.New("connection refused")
	r := registryWith(func(string) (string, error) { return "", boom })
	_, err := r.Lookup(t.Context(), "x.com")
	assert.ErrorIs(t, err, boom)
}

func TestLookup_HonorsContext(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	r := registryWith(func(string) (string, error) {
		<-release
		return registered, nil
	})
	ctx, cancel := context.WithTimeout(t.Context(), 20*time.Millisecond)
	defer cancel()
	_, err := r.Lookup(ctx, "slow.com")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
