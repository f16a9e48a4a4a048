package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autodev/shade/app/store"
	"github.com/autodev/shade/app/theme"
)

func TestAPI_ThemeGet(t *testing.T) {
	ts, st := startTestServer(t, Config{ControlEnabled: true})
	client := newTestClient(t)

	t.Run("no stored preference defaults to light", func(t *testing.T) {
		var resp themeResponse
		apiCall(t, client, http.MethodGet, ts.URL+"/api/v1/theme", "", http.StatusOK, &resp)
		assert.Equal(t, "light", resp.Theme)
		assert.False(t, resp.Stored)
	})

	t.Run("stored dark", func(t *testing.T) {
		require.NoError(t, st.Set(profileFromJar(t, client, ts.URL), theme.PreferenceKey, "dark"))
		var resp themeResponse
		apiCall(t, client, http.MethodGet, ts.URL+"/api/v1/theme", "", http.StatusOK, &resp)
		assert.Equal(t, "dark", resp.Theme)
		assert.True(t, resp.Stored)
	})

	t.Run("stored garbage reads as light", func(t *testing.T) {
		require.NoError(t, st.Set(profileFromJar(t, client, ts.URL), theme.PreferenceKey, "blue"))
		var resp themeResponse
		apiCall(t, client, http.MethodGet, ts.URL+"/api/v1/theme", "", http.StatusOK, &resp)
		assert.Equal(t, "light", resp.Theme)
		assert.True(t, resp.Stored)
	})
}

func TestAPI_ThemeSet(t *testing.T) {
	ts, st := startTestServer(t, Config{ControlEnabled: true})
	client := newTestClient(t)

	t.Run("set dark", func(t *testing.T) {
		var resp themeResponse
		apiCall(t, client, http.MethodPut, ts.URL+"/api/v1/theme", `{"theme":"dark"}`, http.StatusOK, &resp)
		assert.Equal(t, "dark", resp.Theme)

		value, err := st.Get(profileFromJar(t, client, ts.URL), theme.PreferenceKey)
		require.NoError(t, err)
		assert.Equal(t, "dark", value)
	})

	t.Run("set light", func(t *testing.T) {
		var resp themeResponse
		apiCall(t, client, http.MethodPut, ts.URL+"/api/v1/theme", `{"theme":"light"}`, http.StatusOK, &resp)
		assert.Equal(t, "light", resp.Theme)
	})

	t.Run("invalid value rejected", func(t *testing.T) {
		apiCall(t, client, http.MethodPut, ts.URL+"/api/v1/theme", `{"theme":"blue"}`, http.StatusBadRequest, nil)
	})

	t.Run("case sensitive", func(t *testing.T) {
		apiCall(t, client, http.MethodPut, ts.URL+"/api/v1/theme", `{"theme":"Dark"}`, http.StatusBadRequest, nil)
	})

	t.Run("broken json rejected", func(t *testing.T) {
		apiCall(t, client, http.MethodPut, ts.URL+"/api/v1/theme", `{"theme":`, http.StatusBadRequest, nil)
	})
}

func TestAPI_ThemeToggle(t *testing.T) {
	ts, st := startTestServer(t, Config{ControlEnabled: true})
	client := newTestClient(t)

	var resp themeResponse
	apiCall(t, client, http.MethodPost, ts.URL+"/api/v1/theme/toggle", "", http.StatusOK, &resp)
	assert.Equal(t, "dark", resp.Theme, "first toggle from default light")

	value, err := st.Get(profileFromJar(t, client, ts.URL), theme.PreferenceKey)
	require.NoError(t, err)
	assert.Equal(t, "dark", value, "persisted value is the post-toggle state")

	apiCall(t, client, http.MethodPost, ts.URL+"/api/v1/theme/toggle", "", http.StatusOK, &resp)
	assert.Equal(t, "light", resp.Theme)

	// even number of toggles lands back on the start
	for i := 0; i < 4; i++ {
		apiCall(t, client, http.MethodPost, ts.URL+"/api/v1/theme/toggle", "", http.StatusOK, &resp)
	}
	assert.Equal(t, "light", resp.Theme)
}

func TestAPI_ThemeDelete(t *testing.T) {
	ts, st := startTestServer(t, Config{ControlEnabled: true})
	client := newTestClient(t)

	t.Run("delete without preference is 404", func(t *testing.T) {
		apiCall(t, client, http.MethodDelete, ts.URL+"/api/v1/theme", "", http.StatusNotFound, nil)
	})

	t.Run("delete stored preference", func(t *testing.T) {
		require.NoError(t, st.Set(profileFromJar(t, client, ts.URL), theme.PreferenceKey, "dark"))
		apiCall(t, client, http.MethodDelete, ts.URL+"/api/v1/theme", "", http.StatusNoContent, nil)

		_, err := st.Get(profileFromJar(t, client, ts.URL), theme.PreferenceKey)
		assert.ErrorIs(t, err, store.ErrNotFound)
	})
}

func TestAPI_Preferences(t *testing.T) {
	ts, st := startTestServer(t, Config{ControlEnabled: true})
	client := newTestClient(t)

	t.Run("empty list", func(t *testing.T) {
		var prefs []store.PrefInfo
		apiCall(t, client, http.MethodGet, ts.URL+"/api/v1/preferences", "", http.StatusOK, &prefs)
		assert.Empty(t, prefs)
		assert.NotNil(t, prefs)
	})

	t.Run("lists own preferences only", func(t *testing.T) {
		profile := profileFromJar(t, client, ts.URL)
		require.NoError(t, st.Set(profile, theme.PreferenceKey, "dark"))
		require.NoError(t, st.Set("someone-else", theme.PreferenceKey, "light"))

		var prefs []store.PrefInfo
		apiCall(t, client, http.MethodGet, ts.URL+"/api/v1/preferences", "", http.StatusOK, &prefs)
		require.Len(t, prefs, 1)
		assert.Equal(t, theme.PreferenceKey, prefs[0].Key)
		assert.Equal(t, "dark", prefs[0].Value)
	})
}

func TestAPI_ToggleAbsentWhenControlDisabled(t *testing.T) {
	ts, _ := startTestServer(t, Config{ControlEnabled: false})
	client := newTestClient(t)

	apiCall(t, client, http.MethodPost, ts.URL+"/api/v1/theme/toggle", "", http.StatusNotFound, nil)

	// the rest of the API stays available
	var resp themeResponse
	apiCall(t, client, http.MethodGet, ts.URL+"/api/v1/theme", "", http.StatusOK, &resp)
	assert.Equal(t, "light", resp.Theme)
}

// apiCall performs a JSON API request and decodes the response into out if given.
func apiCall(t *testing.T, client *http.Client, method, url, body string, expectedStatus int, out any) {
	t.Helper()

	var reader io.Reader = http.NoBody
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, expectedStatus, resp.StatusCode, fmt.Sprintf("%s %s: %s", method, url, string(data)))

	if out != nil {
		require.NoError(t, json.Unmarshal(data, out))
	}
}
