package application

import (
	"fmt"
	"os"
	"strings"

	"github.com/bnema/lightnode/internal/domain"
)

// LoadChainSpec reads the genesis document at genesisPath and builds the chain
// specification around bootNode.
func LoadChainSpec(genesisPath, bootNode string) (domain.ChainSpecification, error) {
	genesisPath = strings.TrimSpace(genesisPath)
	if genesisPath == "" {
		return domain.ChainSpecification{}, domain.ErrGenesisRequired
	}
	if strings.TrimSpace(bootNode) == "" {
		return domain.ChainSpecification{}, domain.ErrBootNodeRequired
	}

	data, err := os.ReadFile(genesisPath)
	if err != nil {
		return domain.ChainSpecification{}, fmt.Errorf("read genesis file: %w", err)
	}

	spec, err := domain.BuildChainSpec(data, bootNode)
	if err != nil {
		return domain.ChainSpecification{}, fmt.Errorf("build chain specification from %s: %w", genesisPath, err)
	}

	return spec, nil
}
