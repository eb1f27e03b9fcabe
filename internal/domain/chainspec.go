package domain

import (
	"encoding/json"
	"fmt"
	"strings"

	ma "github.com/multiformats/go-multiaddr"
)

const bootNodesKey = "bootNodes"

// ChainSpecification is the JSON document handed to the session engine. It is
// built once and never mutated.
type ChainSpecification struct {
	raw      string
	name     string
	bootNode string
}

// BuildChainSpec inserts bootNode as the only entry of the genesis document's
// bootNodes array, replacing whatever the genesis carried.
func BuildChainSpec(genesis []byte, bootNode string) (ChainSpecification, error) {
	bootNode = strings.TrimSpace(bootNode)
	if bootNode == "" {
		return ChainSpecification{}, ErrBootNodeRequired
	}
	if _, err := ma.NewMultiaddr(bootNode); err != nil {
		return ChainSpecification{}, fmt.Errorf("%w %q: %w", ErrInvalidBootNode, bootNode, err)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(genesis, &fields); err != nil {
		return ChainSpecification{}, fmt.Errorf("%w: %w", ErrInvalidGenesis, err)
	}
	if fields == nil {
		return ChainSpecification{}, fmt.Errorf("%w: document is not an object", ErrInvalidGenesis)
	}

	bootNodes, err := json.Marshal([]string{bootNode})
	if err != nil {
		return ChainSpecification{}, fmt.Errorf("encode boot nodes: %w", err)
	}
	fields[bootNodesKey] = bootNodes

	raw, err := json.Marshal(fields)
	if err != nil {
		return ChainSpecification{}, fmt.Errorf("encode chain specification: %w", err)
	}

	var name string
	if rawName, ok := fields["name"]; ok {
		_ = json.Unmarshal(rawName, &name)
	}

	return ChainSpecification{raw: string(raw), name: name, bootNode: bootNode}, nil
}

func (s ChainSpecification) String() string {
	return s.raw
}

func (s ChainSpecification) Name() string {
	return s.name
}

func (s ChainSpecification) BootNode() string {
	return s.bootNode
}

func (s ChainSpecification) IsZero() bool {
	return s.raw == ""
}
