package catalog_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/stall/internal/adapters/catalog"
	"go.trai.ch/stall/internal/adapters/config"
	"go.trai.ch/stall/internal/core/domain"
)

func TestCatalog_AllPlatformsLoad(t *testing.T) {
	for _, platform := range []string{catalog.PlatformWindows, catalog.PlatformDebian, catalog.PlatformNix} {
		t.Run(platform, func(t *testing.T) {
			c, err := catalog.New(config.NewLoader(nil), platform)
			require.NoError(t, err)
			assert.Equal(t, platform, c.Platform())

			entries := c.Entries()
			require.NotEmpty(t, entries)

			names := make([]string, 0, len(entries))
			for _, e := range entries {
				assert.NotEmpty(t, e.Description, e.Name)
				assert.NotEmpty(t, e.Kind, e.Name)
				names = append(names, e.Name)
			}
			assert.IsNonDecreasing(t, names)

			// Every entry must build into a valid resource.
			set, err := c.Select(names)
			require.NoError(t, err)
			assert.Equal(t, len(names), set.Len())
		})
	}
}

func TestCatalog_Select(t *testing.T) {
	c, err := catalog.New(config.NewLoader(nil), catalog.PlatformWindows)
	require.NoError(t, err)

	set, err := c.Select([]string{"steam", "python", "steam", " "})
	require.NoError(t, err)

	resources := set.Resources()
	require.Len(t, resources, 2)
	assert.Equal(t, "steam", resources[0].Label.String())
	assert.True(t, resources[0].RequiresAgreement)
	assert.Equal(t, domain.KindExe, resources[1].Kind)
	assert.Equal(t, []string{"steam"}, set.PendingAgreements())
}

func TestCatalog_SelectUnknown(t *testing.T) {
	c, err := catalog.New(config.NewLoader(nil), catalog.PlatformNix)
	require.NoError(t, err)

	_, err = c.Select([]string{"photoshop"})
	require.ErrorIs(t, err, domain.ErrUnknownCatalogEntry)
	assert.Equal(t, "photoshop", domain.Metadata(err)["name"])
}

func TestCatalog_UnknownPlatform(t *testing.T) {
	_, err := catalog.New(config.NewLoader(nil), "amiga")
	require.Error(t, err)
}

func TestPlatformFromOSRelease(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"ubuntu", "NAME=\"Ubuntu\"\nID=ubuntu\nID_LIKE=debian\n", catalog.PlatformDebian},
		{"mint via id_like", "ID=linuxmint\nID_LIKE=\"ubuntu debian\"\n", catalog.PlatformDebian},
		{"arch", "ID=arch\n", catalog.PlatformNix},
		{"fedora", "ID=fedora\nVERSION_ID=40\n", catalog.PlatformNix},
		{"empty", "", catalog.PlatformNix},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, catalog.PlatformFromOSRelease(tt.content))
		})
	}
}
