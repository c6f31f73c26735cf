package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectTopTierModelPrefersHighestTier(t *testing.T) {
	home := t.TempDir()
	require.NoError(t, writeAccountsFixture(home))

	stdout, _, err := executeCLI(t, home, "select", "--model", "claude-opus-4-6")
	require.NoError(t, err)
	assert.Equal(t, "ultra_high\n", stdout)
}

func TestSelectOrdinaryModelPrefersQuota(t *testing.T) {
	home := t.TempDir()
	require.NoError(t, writeAccountsFixture(home))

	stdout, _, err := executeCLI(t, home, "select", "--model", "claude-sonnet-4-5", "--failover")
	require.NoError(t, err)
	assert.Equal(t, "free\nfailover: pro_high, ultra_high, pro_low, ultra_low\n", stdout)
}

func TestRankJSONOutput(t *testing.T) {
	home := t.TempDir()
	require.NoError(t, writeAccountsFixture(home))

	stdout, _, err := executeCLI(t, home, "rank", "--model", "claude-opus-4-6", "--json")
	require.NoError(t, err)
	require.True(t, json.Valid([]byte(stdout)))

	var decoded struct {
		Model    string `json:"model"`
		TopTier  bool   `json:"top_tier"`
		Accounts []struct {
			ID   string `json:"id"`
			Tier string `json:"tier"`
		} `json:"accounts"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &decoded))

	ids := make([]string, 0, len(decoded.Accounts))
	for _, account := range decoded.Accounts {
		ids = append(ids, account.ID)
	}
	assert.True(t, decoded.TopTier)
	assert.Equal(t, []string{"ultra_high", "ultra_low", "pro_high", "pro_low", "free"}, ids)
	assert.Equal(t, "Ultra", decoded.Accounts[0].Tier)
}

func TestRankRendersTable(t *testing.T) {
	home := t.TempDir()
	require.NoError(t, writeAccountsFixture(home))

	stdout, _, err := executeCLI(t, home, "rank", "--model", "claude-sonnet-4-5")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Ranking for claude-sonnet-4-5 (ordinary model)")
	assert.Contains(t, stdout, "#1 free")
	assert.Contains(t, stdout, "eligible: 5  blocked: 0")
}

func TestRankRequiresModelFlag(t *testing.T) {
	home := t.TempDir()
	require.NoError(t, writeAccountsFixture(home))

	_, _, err := executeCLI(t, home, "rank")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required flag(s) \"model\" not set")
}

func TestBlockExcludesAccountUntilUnblocked(t *testing.T) {
	home := t.TempDir()
	require.NoError(t, writeAccountsFixture(home))

	_, _, err := executeCLI(t, home, "account", "block", "ultra_high", "--for", "30m")
	require.NoError(t, err)

	stdout, _, err := executeCLI(t, home, "select", "--model", "claude-opus-4-6")
	require.NoError(t, err)
	assert.Equal(t, "ultra_low\n", stdout)

	_, _, err = executeCLI(t, home, "account", "unblock", "ultra_high")
	require.NoError(t, err)

	stdout, _, err = executeCLI(t, home, "select", "--model", "claude-opus-4-6")
	require.NoError(t, err)
	assert.Equal(t, "ultra_high\n", stdout)
}

func TestSelectAllBlockedReturnsExhaustionError(t *testing.T) {
	home := t.TempDir()
	require.NoError(t, writeAccountsFixture(home))

	for _, id := range []string{"ultra_high", "ultra_low", "pro_high", "pro_low", "free"} {
		_, _, err := executeCLI(t, home, "account", "block", id)
		require.NoError(t, err)
	}

	_, _, err := executeCLI(t, home, "select", "--model", "claude-opus-4-6")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no eligible account")
	assert.Contains(t, err.Error(), "5 of 5 accounts blocked")
}

func TestSelectEmptyPoolReturnsExhaustionError(t *testing.T) {
	home := t.TempDir()

	_, _, err := executeCLI(t, home, "select", "--model", "gemini-2.5-flash")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pool is empty")
}

func TestAccountAddAutoAssignsIDsAndLists(t *testing.T) {
	home := t.TempDir()

	stdout, _, err := executeCLI(t, home, "account", "add", "--email", "one@test.com", "--tier", "g1-ultra-tier", "--quota", "5")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Added account 1 (Ultra)")

	stdout, _, err = executeCLI(t, home, "account", "add", "--tier", "free")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Added account 2 (Free)")

	_, _, err = executeCLI(t, home, "account", "add", "1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "account already exists")

	stdout, _, err = executeCLI(t, home, "account", "list")
	require.NoError(t, err)
	assert.Contains(t, stdout, "accounts: 2")
	assert.Contains(t, stdout, "one@test.com (1) Ultra")
	assert.Contains(t, stdout, "2 Free")
}

func TestAccountListJSONOutput(t *testing.T) {
	home := t.TempDir()
	require.NoError(t, writeAccountsFixture(home))

	stdout, _, err := executeCLI(t, home, "account", "list", "--json")
	require.NoError(t, err)
	assert.True(t, json.Valid([]byte(stdout)))
	assert.Contains(t, stdout, "\"id\": \"ultra_high\"")
	assert.Contains(t, stdout, "\"remaining_quota\": 80")
}

func TestAccountQuotaConsumeClampsAtZero(t *testing.T) {
	home := t.TempDir()
	require.NoError(t, writeAccountsFixture(home))

	stdout, _, err := executeCLI(t, home, "account", "quota", "pro_low", "--consume", "50")
	require.NoError(t, err)
	assert.Equal(t, "Account pro_low quota: 0\n", stdout)

	stdout, _, err = executeCLI(t, home, "account", "quota", "pro_low", "--unknown")
	require.NoError(t, err)
	assert.Equal(t, "Account pro_low quota: unknown\n", stdout)

	_, _, err = executeCLI(t, home, "account", "quota", "pro_low", "-3")
	require.Error(t, err)
}

func TestAccountHealthAndTierUpdatesChangeSelection(t *testing.T) {
	home := t.TempDir()
	require.NoError(t, writeAccountsFixture(home))

	_, _, err := executeCLI(t, home, "account", "tier", "free", "ULTRA")
	require.NoError(t, err)

	stdout, _, err := executeCLI(t, home, "select", "--model", "claude-opus-4-6")
	require.NoError(t, err)
	assert.Equal(t, "free\n", stdout)

	_, _, err = executeCLI(t, home, "account", "health", "free", "1.5")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "out of range")
}

func TestAccountRemoveDeletesAccount(t *testing.T) {
	home := t.TempDir()
	require.NoError(t, writeAccountsFixture(home))

	_, _, err := executeCLI(t, home, "account", "remove", "ultra_high")
	require.NoError(t, err)

	_, _, err = executeCLI(t, home, "account", "remove", "ultra_high")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "account not found")
}

func TestAccountCredentialSetStoresCredentialFile(t *testing.T) {
	home := t.TempDir()
	require.NoError(t, writeAccountsFixture(home))

	stdout, _, err := executeCLI(t, home,
		"account", "credential", "set", "pro_high",
		"--access-token", "ya29.token",
		"--refresh-token", "1//refresh",
		"--expires-at", "2026-10-14T13:00:00Z",
	)
	require.NoError(t, err)
	assert.Contains(t, stdout, "Stored credential for account pro_high")

	data, err := os.ReadFile(filepath.Join(home, ".tpr", "credentials", "accounts", "pro_high.toml"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "ya29.token")

	accounts, err := os.ReadFile(filepath.Join(home, ".tpr", "accounts.toml"))
	require.NoError(t, err)
	assert.Contains(t, string(accounts), "accounts/pro_high")
}

func TestAccountCredentialSetRequiresAccessToken(t *testing.T) {
	home := t.TempDir()
	require.NoError(t, writeAccountsFixture(home))

	_, _, err := executeCLI(t, home, "account", "credential", "set", "pro_high")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required flag(s) \"access-token\" not set")
}

func TestClassifyUsesDefaultRules(t *testing.T) {
	home := t.TempDir()

	stdout, _, err := executeCLI(t, home, "classify", "models/Claude-Opus-4-6")
	require.NoError(t, err)
	assert.Equal(t, "models/Claude-Opus-4-6: top-tier\n", stdout)

	stdout, _, err = executeCLI(t, home, "classify", "gemini-1.5-flash")
	require.NoError(t, err)
	assert.Equal(t, "gemini-1.5-flash: ordinary\n", stdout)
}

func TestClassifyUsesConfiguredRules(t *testing.T) {
	home := t.TempDir()
	require.NoError(t, writeConfigFixture(home, strings.Join([]string{
		"[routing]",
		"top_tier_models = [\"gemini-3-pro\"]",
	}, "\n")))

	stdout, _, err := executeCLI(t, home, "classify", "gemini-3-pro-high")
	require.NoError(t, err)
	assert.Equal(t, "gemini-3-pro-high: top-tier\n", stdout)

	stdout, _, err = executeCLI(t, home, "classify", "claude-opus-4-6")
	require.NoError(t, err)
	assert.Equal(t, "claude-opus-4-6: ordinary\n", stdout)
}

func TestInvalidConfigSurfacesWireError(t *testing.T) {
	home := t.TempDir()
	require.NoError(t, writeConfigFixture(home, strings.Join([]string{
		"[[routing.top_tier_rules]]",
		"pattern = \"opus\"",
		"match = \"regex\"",
	}, "\n")))

	_, _, err := executeCLI(t, home)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported match mode")
}

func TestPoolActivateThenSelectFromPool(t *testing.T) {
	home := t.TempDir()
	require.NoError(t, writeAccountsFixture(home))

	stdout, _, err := executeCLI(t, home, "pool", "activate")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Activated pool default (members: 5)")

	stdout, _, err = executeCLI(t, home, "select", "--model", "claude-opus-4-6", "--pool", "default", "--failover")
	require.NoError(t, err)
	assert.Equal(t, "ultra_high\nfailover: ultra_low, pro_high, pro_low, free\n", stdout)

	_, _, err = executeCLI(t, home, "account", "block", "pro_low")
	require.NoError(t, err)

	stdout, _, err = executeCLI(t, home, "pool", "status")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(stdout, "pool default (tier_aware, active)\n"))
	assert.Contains(t, stdout, "accounts: 5")
	assert.Contains(t, stdout, "ultra-high@test.com (ultra_high) Ultra")
	assert.Contains(t, stdout, "[blocked] pro_low until")

	_, _, err = executeCLI(t, home, "pool", "deactivate")
	require.NoError(t, err)

	_, _, err = executeCLI(t, home, "rank", "--model", "claude-opus-4-6", "--pool", "default")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pool is inactive")
}

func TestPoolStatusWithoutPool(t *testing.T) {
	home := t.TempDir()

	stdout, _, err := executeCLI(t, home, "pool", "status")
	require.NoError(t, err)
	assert.Equal(t, "pool default is not configured\n", stdout)
}

func TestPoolStatusJSONAfterAccountRemoval(t *testing.T) {
	home := t.TempDir()
	require.NoError(t, writeAccountsFixture(home))

	_, _, err := executeCLI(t, home, "pool", "activate")
	require.NoError(t, err)
	_, _, err = executeCLI(t, home, "account", "remove", "free")
	require.NoError(t, err)

	stdout, _, err := executeCLI(t, home, "pool", "status", "--json")
	require.NoError(t, err)

	var decoded struct {
		ID       string `json:"id"`
		Strategy string `json:"strategy"`
		Active   bool   `json:"active"`
		Members  []struct {
			ID string `json:"id"`
		} `json:"members"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &decoded))
	assert.Equal(t, "default", decoded.ID)
	assert.Equal(t, "tier_aware", decoded.Strategy)
	assert.True(t, decoded.Active)
	require.Len(t, decoded.Members, 4)
	assert.Equal(t, "ultra_high", decoded.Members[0].ID)

	data, err := os.ReadFile(filepath.Join(home, ".tpr", "accounts.toml"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "[[pools]]")
	assert.NotContains(t, string(data), "'free'")
}

func TestRankSanitizesModelName(t *testing.T) {
	home := t.TempDir()
	require.NoError(t, writeAccountsFixture(home))

	stdout, _, err := executeCLI(t, home, "rank", "--model", "claude-opus\x1b[2J-4-6")
	require.NoError(t, err)
	assert.NotContains(t, stdout, "\x1b")
	assert.Contains(t, stdout, "Ranking for claude-opus[2J-4-6 (top-tier model)")
}

func TestVersionCommand(t *testing.T) {
	home := t.TempDir()

	stdout, _, err := executeCLI(t, home, "version")
	require.NoError(t, err)
	assert.Equal(t, "dev\n", stdout)
}

func TestUsageCommandIsRemoved(t *testing.T) {
	home := t.TempDir()

	_, _, err := executeCLI(t, home, "usage")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown command \"usage\"")
}

func executeCLI(t *testing.T, home string, args ...string) (string, string, error) {
	t.Helper()
	t.Setenv("HOME", home)

	root := newRootCmd()
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.SetArgs(args)

	err := root.Execute()
	return stdout.String(), stderr.String(), err
}

func writeConfigFixture(home, config string) error {
	configDir := filepath.Join(home, ".tpr")
	if err := os.MkdirAll(configDir, 0o700); err != nil {
		return err
	}

	return os.WriteFile(filepath.Join(configDir, "config.toml"), []byte(config+"\n"), 0o600)
}

func writeAccountsFixture(home string) error {
	configDir := filepath.Join(home, ".tpr")
	if err := os.MkdirAll(configDir, 0o700); err != nil {
		return err
	}

	accounts := `version = 1

[[accounts]]
id = "ultra_high"
email = "ultra-high@test.com"
entitlement = { subscription_tier = "ULTRA" }
runtime = { remaining_quota = 80, health_score = 1.0 }

[[accounts]]
id = "ultra_low"
entitlement = { subscription_tier = "ULTRA" }
runtime = { remaining_quota = 20, health_score = 1.0 }

[[accounts]]
id = "pro_high"
entitlement = { subscription_tier = "PRO" }
runtime = { remaining_quota = 90, health_score = 1.0 }

[[accounts]]
id = "pro_low"
entitlement = { subscription_tier = "PRO" }
runtime = { remaining_quota = 30, health_score = 1.0 }

[[accounts]]
id = "free"
entitlement = { subscription_tier = "FREE" }
runtime = { remaining_quota = 100, health_score = 1.0 }
`

	return os.WriteFile(filepath.Join(configDir, "accounts.toml"), []byte(accounts), 0o600)
}
