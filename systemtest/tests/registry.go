package tests

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EternisAI/agent-registry/internal/account"
	"github.com/EternisAI/agent-registry/internal/api/http/dto"
)

var (
	Creator   = account.MustParseAddress("0xdbF03B407c01E7cD3CBea99509d93f8DDDC8C6FB")
	Recipient = account.MustParseAddress("0xD1220A0cf47c7B9Be7A2E6BA89F429762e7b9aDb")
	Outsider  = account.MustParseAddress("0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359")
)

// TestAgentLifecycle registers an agent, grants usage against it and moves
// part of the grant. It leaves ownership record 1 and usage record 1 behind.
func TestAgentLifecycle(t *testing.T, env *Env) {
	create := map[string]any{
		"identity": map[string]any{"agent_id": "sys-agent-1", "name": "System agent", "version": "2"},
		"attributes": []map[string]any{
			{"category": 0, "attribute_type": "model", "attribute_value": "llm", "is_active": true},
		},
		"platform_info":   map[string]any{"platform_name": "sys", "metadata_uri": "https://example.com/sys.json"},
		"metadata_keys":   []string{"tier"},
		"metadata_values": []string{"premium"},
	}

	rr := env.doJSON(t, http.MethodPost, env.Ownership+"/records", Creator, create)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	require.Equal(t, uint64(1), decode[dto.CreateRecordResponse](t, rr).ID)

	t.Run("duplicate agent", func(t *testing.T) {
		rr := env.doJSON(t, http.MethodPost, env.Ownership+"/records", Outsider, create)
		assert.Equal(t, http.StatusConflict, rr.Code)
	})

	t.Run("record view", func(t *testing.T) {
		rr := env.doJSON(t, http.MethodGet, env.Ownership+"/records/1", account.Zero, nil)
		require.Equal(t, http.StatusOK, rr.Code)
		rec := decode[dto.OwnershipRecordResponse](t, rr)
		assert.Equal(t, Creator, rec.Owner)
		assert.Equal(t, "sys-agent-1", rec.Identity.AgentID)
		assert.NotZero(t, rec.Identity.CreatedAt)
		assert.Equal(t, "https://example.com/sys.json", rec.TokenURI)
	})

	grant := map[string]any{
		"ownership_id": 1,
		"terms":        map[string]any{"from_timestamp": 0, "to_timestamp": 4102444800, "attribute_key": "0_model"},
		"recipient":    Recipient.Hex(),
		"quantity":     5,
	}

	t.Run("outsider cannot grant", func(t *testing.T) {
		rr := env.doJSON(t, http.MethodPost, env.Usage+"/records", Outsider, grant)
		assert.Equal(t, http.StatusForbidden, rr.Code)
	})

	rr = env.doJSON(t, http.MethodPost, env.Usage+"/records", Creator, grant)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	t.Run("window active", func(t *testing.T) {
		rr := env.doJSON(t, http.MethodGet, env.Usage+"/records/1/window", account.Zero, nil)
		require.Equal(t, http.StatusOK, rr.Code)
		assert.True(t, decode[dto.WindowResponse](t, rr).Active)
	})

	t.Run("partial transfer", func(t *testing.T) {
		body := map[string]any{"from": Recipient.Hex(), "to": Outsider.Hex(), "quantity": 2}
		rr := env.doJSON(t, http.MethodPost, env.Usage+"/records/1/transfer", Recipient, body)
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

		AssertUsageBalance(t, env, Recipient, 3)
		AssertUsageBalance(t, env, Outsider, 2)
	})

	t.Run("overdraw rejected", func(t *testing.T) {
		body := map[string]any{"from": Outsider.Hex(), "to": Recipient.Hex(), "quantity": 3}
		rr := env.doJSON(t, http.MethodPost, env.Usage+"/records/1/transfer", Outsider, body)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

// TestStateSurvivesRestart checks what TestAgentLifecycle left behind against
// a freshly replayed system.
func TestStateSurvivesRestart(t *testing.T, env *Env) {
	rr := env.doJSON(t, http.MethodGet, env.Ownership+"/agents/sys-agent-1", account.Zero, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, uint64(1), decode[dto.ResolveResponse](t, rr).ID)

	rr = env.doJSON(t, http.MethodGet, env.Ownership+"/records/1/metadata/tier", account.Zero, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "premium", decode[dto.MetadataResponse](t, rr).Value)

	AssertUsageBalance(t, env, Recipient, 3)
	AssertUsageBalance(t, env, Outsider, 2)
}

func AssertUsageBalance(t *testing.T, env *Env, holder account.Address, want uint64) {
	t.Helper()
	rr := env.doJSON(t, http.MethodGet, env.Usage+"/records/1/balances/"+holder.Hex(), account.Zero, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, want, decode[dto.BalanceResponse](t, rr).Balance)
}
