package service

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ludo-technologies/ucover/domain"
	"github.com/ludo-technologies/ucover/internal/config"
)

// sampleDump has an if/else method with one sequence point per section
// and a method whose generated finally does not end in endfinally
const sampleDump = `
name: Sample, Version=1.0.0.0, Culture=neutral
path: /nonexistent/bin/Sample.dll
hash: 01-02-03
has_symbols: true
types:
  - name: Sample.Branches
    methods:
      - name: Sample.Branches::Pick(bool)
        token: 100663297
        instructions:
          - {offset: 0, opcode: ldarg.1}
          - {offset: 1, opcode: nop}
          - {offset: 2, opcode: brfalse.s, targets: [8]}
          - {offset: 4, opcode: ldc.i4.1}
          - {offset: 5, opcode: stloc.0}
          - {offset: 6, opcode: br.s, targets: [10]}
          - {offset: 8, opcode: ldc.i4.2}
          - {offset: 9, opcode: stloc.0}
          - {offset: 10, opcode: ldloc.0}
          - {offset: 11, opcode: ret}
        sequence_points:
          - {document: /src/Branches.cs, offset: 0, start_line: 10, start_column: 9, end_line: 10, end_column: 20}
          - {document: /src/Branches.cs, offset: 4, start_line: 11, start_column: 13, end_line: 11, end_column: 19}
          - {document: /src/Branches.cs, offset: 8, start_line: 13, start_column: 13, end_line: 13, end_column: 19}
          - {document: /src/Branches.cs, offset: 10, start_line: 14, start_column: 9, end_line: 14, end_column: 18}
  - name: Sample.Broken
    methods:
      - name: Sample.Broken::Cleanup()
        token: 100663298
        instructions:
          - {offset: 0, opcode: nop}
          - {offset: 1, opcode: leave.s, targets: [5]}
          - {offset: 3, opcode: nop}
          - {offset: 4, opcode: nop}
          - {offset: 5, opcode: ret}
        handlers:
          - {kind: finally, try_start: 0, try_end: 3, handler_start: 3, handler_end: 5}
        sequence_points:
          - {document: /src/Broken.cs, offset: 0, start_line: 20, start_column: 9, end_line: 20, end_column: 15}
`

const testFrameworkDump = `
name: nunit.framework
path: /nonexistent/bin/nunit.framework.dll
has_symbols: true
types:
  - name: NUnit.Framework.Assert
    methods: []
`

const systemDump = `
name: System.Core
path: /nonexistent/bin/System.Core.dll
has_symbols: false
types: []
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("Failed to create directory: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write %s: %v", name, err)
	}
	return path
}

// defaultModelRequest is the model request of the default configuration
func defaultModelRequest() domain.ModelRequest {
	return *ModelRequestFromConfig(config.DefaultConfig())
}
