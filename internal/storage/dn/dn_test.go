package dn

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr error
	}{
		{"empty", "", "", nil},
		{"spaces only", "   ", "", nil},
		{"simple", "dc=com", "dc=com", nil},
		{"case folding", "UID=Alice,OU=Users,DC=Example,DC=Com", "uid=alice,ou=users,dc=example,dc=com", nil},
		{"whitespace", " cn = John   Smith , dc=com ", "cn=john smith,dc=com", nil},
		{"escaped comma", `cn=Smith\, John,dc=com`, `cn=smith\, john,dc=com`, nil},
		{"multi-valued", "cn=A+uid=B,dc=com", "cn=a+uid=b,dc=com", nil},
		{"missing equals", "dc=com,example", "", ErrInvalidRDN},
		{"empty type", "=x,dc=com", "", ErrInvalidRDN},
		{"empty component", "cn=a,,dc=com", "", ErrEmptyRDNComponent},
		{"trailing escape", `cn=a\`, "", ErrInvalidDN},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Normalize(tt.in)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseKeepsValueCase(t *testing.T) {
	rdns, err := Parse("UID=Alice, ou=Users,dc=com")
	require.NoError(t, err)
	assert.Equal(t, []string{"uid=Alice", "ou=Users", "dc=com"}, rdns)
}

func TestParentAndRDN(t *testing.T) {
	ndn := `cn=smith\, john,ou=users,dc=com`
	assert.Equal(t, `cn=smith\, john`, RDN(ndn))
	assert.Equal(t, "ou=users,dc=com", Parent(ndn))
	assert.Equal(t, "dc=com", Parent(Parent(ndn)))
	assert.Equal(t, "", Parent("dc=com"))
	assert.Equal(t, "dc=com", RDN("dc=com"))
}

func TestIsSuffixOf(t *testing.T) {
	tests := []struct {
		ndn, suffix string
		want        bool
	}{
		{"dc=example,dc=com", "dc=com", true},
		{"dc=com", "dc=com", true},
		{"dc=com", "", true},
		{"dc=notcom", "dc=com", false},
		{"dc=xdc=com", "dc=com", false},
		{"dc=com", "dc=example,dc=com", false},
		{`cn=a\,dc=com`, "dc=com", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsSuffixOf(tt.ndn, tt.suffix), "%s under %s", tt.ndn, tt.suffix)
	}
}

func TestIsChildOf(t *testing.T) {
	assert.True(t, IsChildOf("ou=users,dc=com", "dc=com"))
	assert.False(t, IsChildOf("uid=a,ou=users,dc=com", "dc=com"))
	assert.False(t, IsChildOf("dc=com", "dc=com"))
	assert.True(t, IsChildOf("dc=com", ""))
}

func TestDepth(t *testing.T) {
	assert.Equal(t, 0, Depth(""))
	assert.Equal(t, 1, Depth("dc=com"))
	assert.Equal(t, 4, Depth("uid=alice,ou=users,dc=example,dc=com"))
	assert.Equal(t, 2, Depth(`cn=a\,b,dc=com`))
}
