package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPhone(t *testing.T) {
	tests := []struct {
		in     string
		want   string
		wantOK bool
	}{
		{"(47) 98877-1122", "47988771122", true},
		{"47988771122", "47988771122", true},
		{"+55 47 98877-1122", "5547988771122", false},
		{"4798877", "4798877", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := Phone(tt.in)
		assert.Equal(t, tt.want, got, tt.in)
		assert.Equal(t, tt.wantOK, ok, tt.in)
	}
}

func TestDate(t *testing.T) {
	d, ok := Date("2014-08-22")
	assert.True(t, ok)
	assert.Equal(t, "2014-08-22", d.Format(DateLayout))

	d, ok = Date("22/08/2014")
	assert.True(t, ok)
	assert.Equal(t, "2014-08-22", d.Format(DateLayout))

	_, ok = Date("not-a-date")
	assert.False(t, ok)
	_, ok = Date("2014-13-01")
	assert.False(t, ok)
}

func TestText(t *testing.T) {
	s, ok := Text("  Actor ", MaxResponsibility)
	assert.True(t, ok)
	assert.Equal(t, "Actor", s)

	_, ok = Text("   ", MaxResponsibility)
	assert.False(t, ok)

	long := make([]rune, MaxResponsibility+1)
	for i := range long {
		long[i] = 'á'
	}
	_, ok = Text(string(long), MaxResponsibility)
	assert.False(t, ok)
	_, ok = Text(string(long[:MaxResponsibility]), MaxResponsibility)
	assert.True(t, ok)
}

func TestPassword(t *testing.T) {
	assert.True(t, Password("Admin@adm1"))
	assert.False(t, Password("Admin@adm"), "missing digit")
	assert.False(t, Password("admin@adm1"), "missing uppercase")
	assert.False(t, Password("Adminadm1"), "missing special")
	assert.False(t, Password("A@1a"), "too short")
	assert.False(t, Password("Admin@adm1Admin@adm1X"), "too long")
}

func TestEmail(t *testing.T) {
	_, ok := Email("bojack@horse.men")
	assert.True(t, ok)
	_, ok = Email("BoJack <bojack@horse.men>")
	assert.False(t, ok)
	_, ok = Email("bojack-at-horse.men")
	assert.False(t, ok)
}
