package program

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

// YAMLInstruction represents an instruction entry of instrs.yaml
type YAMLInstruction struct {
	Opcode int    `yaml:"opcode"`
	Name   string `yaml:"name"`
	Args   []struct {
		Name string `yaml:"name"`
		Type string `yaml:"type"`
	} `yaml:"args"`
	Format string `yaml:"format"`
}

type YAMLSpec struct {
	Instructions []YAMLInstruction `yaml:"instructions"`
}

func TestInstructionSpecValidation(t *testing.T) {
	data, err := os.ReadFile("instrs.yaml")
	require.NoError(t, err)

	var spec YAMLSpec
	require.NoError(t, yaml.Unmarshal(data, &spec))
	require.Len(t, spec.Instructions, len(InstrSpecs), "instrs.yaml and the DSL define a different number of instructions")

	seen := make(map[Opcode]bool)
	for _, yamlInstr := range spec.Instructions {
		op := Opcode(yamlInstr.Opcode)
		seen[op] = true

		goSpec, exists := InstrSpecs[op]
		if !assert.True(t, exists, "opcode 0x%02x (%s) not found in DSL definitions", yamlInstr.Opcode, yamlInstr.Name) {
			continue
		}
		assert.Equal(t, opcodeStrLower(op), yamlInstr.Name, "opcode 0x%02x", yamlInstr.Opcode)
		assert.Equal(t, yamlInstr.Name, goSpec.Name)
		assert.Equal(t, yamlInstr.Format, goSpec.Format, "%s format", goSpec.Name)
		if !assert.Len(t, goSpec.Args, len(yamlInstr.Args), "%s argument count", goSpec.Name) {
			continue
		}
		for i, arg := range yamlInstr.Args {
			assert.Equal(t, arg.Name, goSpec.Args[i].Name, "%s arg %d name", goSpec.Name, i)
			assert.Equal(t, arg.Type, goSpec.Args[i].Type.String(), "%s arg %d type", goSpec.Name, i)
		}
	}

	for _, op := range Opcodes() {
		assert.True(t, seen[op], "%s missing from instrs.yaml", op)
	}
}
