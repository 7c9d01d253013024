package moduleio

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const noopModuleJSON = `{
  "address": "0x1",
  "name": "noop",
  "module_handles": ["0x1::noop"],
  "functions": [
    {
      "handle": {"module": 0, "name": "run", "parameters": [], "returns": [{"kind": "u64"}], "type_params": 0},
      "is_native": false,
      "is_entry": false,
      "visibility": "public",
      "locals": [],
      "code": [
        {"op": "ld_u64"},
        {"op": "ret"}
      ]
    }
  ],
  "structs": [],
  "field_handles": [],
  "constants": []
}`

func TestLoadBuildsACompiledModuleTheLifterAccepts(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "noop.json"), []byte(noopModuleJSON), 0o644))

	name, cm, err := Load(filepath.Join(dir, "noop.json"))
	require.NoError(t, err)
	require.Equal(t, "0x1::noop", name)
	require.Len(t, cm.FunctionDefs, 1)
	require.Equal(t, "run", cm.Pool.String(cm.FunctionDefs[0].Name))
}

func TestLoadDirRegistersEveryJSONFileInSortedOrder(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "noop.json"), []byte(noopModuleJSON), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignore me"), 0o644))

	pkg, err := LoadDir(dir)
	require.NoError(t, err)
	require.Len(t, pkg.GetAll(), 1)
	require.Equal(t, "0x1::noop", pkg.GetAll()[0].Name)
}

func TestLoadRejectsUnknownOpcode(t *testing.T) {
	dir := t.TempDir()
	bad := `{"address":"0x1","name":"bad","module_handles":["0x1::bad"],"functions":[
		{"handle":{"module":0,"name":"f","parameters":[],"returns":[],"type_params":0},
		 "is_native":false,"is_entry":false,"visibility":"private","locals":[],
		 "code":[{"op":"not_a_real_opcode"}]}
	],"structs":[],"field_handles":[],"constants":[]}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.json"), []byte(bad), 0o644))

	_, _, err := Load(filepath.Join(dir, "bad.json"))
	require.Error(t, err)
}
