package auth

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStore map[string]string

func (m memStore) GetSetting(key string) (string, error) { return m[key], nil }

func (m memStore) SetSetting(key, value string) error {
	m[key] = value
	return nil
}

func TestGenerateAPIKey(t *testing.T) {
	a, err := GenerateAPIKey()
	require.NoError(t, err)
	b, err := GenerateAPIKey()
	require.NoError(t, err)

	assert.Len(t, a, APIKeyLength*2)
	assert.NotEqual(t, a, b)
}

func TestAPIKeyService(t *testing.T) {
	svc := NewAPIKeyService(memStore{})

	enabled, err := svc.Enabled()
	require.NoError(t, err)
	assert.False(t, enabled)

	ok, err := svc.Validate("anything")
	require.NoError(t, err)
	assert.False(t, ok, "no key configured should reject")

	key, err := svc.Regenerate()
	require.NoError(t, err)

	enabled, err = svc.Enabled()
	require.NoError(t, err)
	assert.True(t, enabled)

	ok, err = svc.Validate(key)
	require.NoError(t, err)
	assert.True(t, ok)

	// cached path
	ok, err = svc.Validate(key)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.Validate("wrong")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = svc.Validate("")
	require.NoError(t, err)
	assert.False(t, ok)

	newKey, err := svc.Regenerate()
	require.NoError(t, err)

	ok, err = svc.Validate(key)
	require.NoError(t, err)
	assert.False(t, ok, "old key must stop working after regeneration")

	ok, err = svc.Validate(newKey)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestValidate_HashRotatedByAnotherProcess(t *testing.T) {
	store := memStore{}
	svc := NewAPIKeyService(store)

	key, err := svc.Regenerate()
	require.NoError(t, err)
	ok, err := svc.Validate(key)
	require.NoError(t, err)
	require.True(t, ok)

	// a second service sharing the store regenerates, as `transferlog apikey` does
	_, err = NewAPIKeyService(store).Regenerate()
	require.NoError(t, err)

	ok, err = svc.Validate(key)
	require.NoError(t, err)
	assert.False(t, ok, "cached key must not outlive the stored hash")
}

func TestValidate_Concurrent(t *testing.T) {
	svc := NewAPIKeyService(memStore{})
	key, err := svc.Regenerate()
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make([]bool, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			candidate := key
			if i%2 == 1 {
				candidate = "wrong"
			}
			ok, err := svc.Validate(candidate)
			assert.NoError(t, err)
			results[i] = ok
		}(i)
	}
	wg.Wait()

	for i, ok := range results {
		assert.Equal(t, i%2 == 0, ok, "goroutine %d", i)
	}
}
