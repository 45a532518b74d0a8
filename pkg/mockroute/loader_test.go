package mockroute

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadRulesYAML(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "auth.yaml", `
rules:
  - name: login
    pattern: "*/**/api/auth"
    method: put
    body:
      email: d@jwt.com
      password: a
    response:
      user: {id: 3, name: Kai Chen}
      token: abcdef
  - pattern: "*/**/api/auth"
    method: DELETE
    header: Authorization
    header_value: Bearer abcdef
    response: {message: logout successful}
`)

	rules, err := LoadRules(path)
	require.NoError(t, err)
	require.Len(t, rules, 2)
	assert.Equal(t, "PUT", rules[0].Method)
	assert.Equal(t, "login", rules[0].Name)

	reg := NewRegistrar()
	reg.MustRegister(rules[0])
	resp, err := reg.Dispatch(jsonRequest("PUT", base+"/api/auth", `{"email":"d@jwt.com","password":"a"}`))
	require.NoError(t, err)
	assert.JSONEq(t, `{"user":{"id":3,"name":"Kai Chen"},"token":"abcdef"}`, string(resp.Body))
}

func TestLoadRulesJSON(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "menu.json", `{"rules":[{"pattern":"*/**/api/order/menu","method":"GET","response":[]}]}`)

	rules, err := LoadRules(path)
	require.NoError(t, err)
	require.Len(t, rules, 1)
	assert.Equal(t, "GET", rules[0].Method)
}

func TestLoadRulesErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadRules(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)

	_, err = LoadRules(writeFile(t, dir, "rules.txt", "rules: []"))
	assert.ErrorContains(t, err, "unsupported extension")

	_, err = LoadRules(writeFile(t, dir, "empty.yaml", "rules: []"))
	assert.ErrorContains(t, err, "no rules")

	_, err = LoadRules(writeFile(t, dir, "bad.yaml", "rules:\n  - method: GET\n"))
	assert.ErrorContains(t, err, "empty pattern")

	_, err = LoadRules(writeFile(t, dir, "broken.json", "{"))
	assert.ErrorContains(t, err, "parsing rules")
}

func TestLoadRulesDir(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b.yaml", "rules:\n  - {pattern: \"*/**/api/franchise\", method: GET, response: [2]}\n")
	writeFile(t, dir, "a.json", `{"rules":[{"pattern":"*/**/api/franchise","method":"GET","response":[1]}]}`)
	writeFile(t, dir, "README.md", "ignored")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested"), 0o755))

	rules, err := LoadRulesDir(dir)
	require.NoError(t, err)
	require.Len(t, rules, 2)

	reg := NewRegistrar()
	reg.MustRegister(rules...)
	resp, err := reg.Dispatch(jsonRequest("GET", base+"/api/franchise", ""))
	require.NoError(t, err)
	assert.Equal(t, "[2]", string(resp.Body))
}
