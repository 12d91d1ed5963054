package hierarchy_test

import (
	"math/rand"
	"testing"

	"github.com/seenhealth/hccinfhir/hcc/hierarchy"
	"github.com/seenhealth/hccinfhir/hcc/models"
	"github.com/seenhealth/hccinfhir/hcc/tables"
	"github.com/stretchr/testify/assert"
)

func TestResolve(t *testing.T) {
	reg := tables.Default()

	tests := []struct {
		name  string
		model models.Model
		in    []string
		want  []string
	}{
		{"dominant removes child", models.CMSHCCV28, []string{"37", "38"}, []string{"37"}},
		{"chain collapses to top", models.CMSHCCV28, []string{"36", "37", "38"}, []string{"36"}},
		{"unrelated categories survive", models.CMSHCCV28, []string{"37", "38", "226", "2"}, []string{"2", "226", "37"}},
		{"no rules apply", models.CMSHCCV28, []string{"2", "280"}, []string{"2", "280"}},
		{"diabetes severity v24", models.CMSHCCV24, []string{"17", "18", "19"}, []string{"17"}},
		{"cancer chain v24", models.CMSHCCV24, []string{"9", "11", "12"}, []string{"9"}},
		{"renal chain v24", models.CMSHCCV24, []string{"136", "137", "138"}, []string{"136"}},
		{"unknown categories pass through", models.CMSHCCV24, []string{"9999", "19"}, []string{"19", "9999"}},
		{"empty", models.CMSHCCV24, nil, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := hierarchy.Resolve(tt.in, reg.For(tt.model))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveIdempotent(t *testing.T) {
	v28 := tables.Default().For(models.CMSHCCV28)

	once := hierarchy.Resolve([]string{"36", "37", "38", "226", "329", "2"}, v28)
	twice := hierarchy.Resolve(once, v28)
	assert.Equal(t, once, twice)
}

func TestResolveOrderIndependent(t *testing.T) {
	v28 := tables.Default().For(models.CMSHCCV28)

	in := []string{"17", "18", "19", "20", "221", "222", "226", "280", "2"}
	want := hierarchy.Resolve(in, v28)

	r := rand.New(rand.NewSource(1))
	for i := 0; i < 20; i++ {
		shuffled := append([]string(nil), in...)
		r.Shuffle(len(shuffled), func(a, b int) {
			shuffled[a], shuffled[b] = shuffled[b], shuffled[a]
		})
		assert.Equal(t, want, hierarchy.Resolve(shuffled, v28))
	}
}

func TestResolveDuplicates(t *testing.T) {
	v24 := tables.Default().For(models.CMSHCCV24)
	got := hierarchy.Resolve([]string{"19", "19", "18"}, v24)
	assert.Equal(t, []string{"18"}, got)
}
