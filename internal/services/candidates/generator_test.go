package candidates

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"leadscout/internal/domain"
)

func domains(cs []domain.DomainCandidate) []string {
	out := make([]string, 0, len(cs))
	for _, c := range cs {
		out = append(out, c.Domain)
	}
	return out
}

func TestGenerate_JoesPizza(t *testing.T) {
	got := Generate("Joe's Pizza")

	assert.Equal(t, []string{
		"joes.pizza.com",
		"joes-pizza.com",
		"joespizza.com",
		"joes-pizza.net",
		"joes-pizza.org",
		"joes-pizza.biz",
		"joes-pizza.co",
	}, domains(got))
	for _, c := range got {
		assert.Equal(t, domain.OriginGenerated, c.Origin)
	}
}

func TestGenerate_Deterministic(t *testing.T) {
	names := []string{"Joe's Pizza", "ACE  Hardware & Supply", "Café Rio", "7-Eleven", "", "!!!"}
	for _, n := range names {
		assert.Equal(t, Generate(n), Generate(n), n)
	}
}

func TestGenerate_SingleWordDeduplicated(t *testing.T) {
	got := domains(Generate("Starbucks"))
	assert.Equal(t, []string{
		"starbucks.com",
		"starbucks.net",
		"starbucks.org",
		"starbucks.biz",
		"starbucks.co",
	}, got)
}

func TestGenerate_EmptyAfterStripping(t *testing.T) {
	assert.Empty(t, Generate(""))
	assert.Empty(t, Generate("  &&  !! "))
}

func TestGenerate_FoldsDiacritics(t *testing.T) {
	got := domains(Generate("Café Rio"))
	require.NotEmpty(t, got)
	assert.Equal(t, "cafe.rio.com", got[0])
	assert.Contains(t, got, "caferio.com")
}

func TestGenerate_DropsOverlongLabels(t *testing.T) {
	long := "Supercalifragilisticexpialidocious Extraordinarily Wonderful Bakery"
	for _, d := range domains(Generate(long)) {
		assert.True(t, ValidHost(d), d)
	}
	assert.NotContains(t, domains(Generate(long)), "supercalifragilisticexpialidociousextraordinarilywonderfulbakery.com")
}

func TestHostFromURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"https://www.JoesPizza.com/menu?x=1", "joespizza.com", true},
		{"joespizza.com", "joespizza.com", true},
		{"http://order.joespizza.com:8080", "order.joespizza.com", true},
		{"https://café.example/", "xn--caf-dma.example", true},
		{"", "", false},
		{"not a host", "", false},
		{"http://localhost", "", false},
	}
	for _, tt := range tests {
		got, ok := HostFromURL(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestRegistrable(t *testing.T) {
	assert.Equal(t, "joespizza.com", Registrable("order.joespizza.com"))
	assert.Equal(t, "joespizza.co.uk", Registrable("www.joespizza.co.uk"))
	assert.Equal(t, "com", Registrable("com"))
}
