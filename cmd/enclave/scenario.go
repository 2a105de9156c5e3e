// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"bytes"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/enclavenet/enclave/builtin/mining"
	"github.com/enclavenet/enclave/tx"
)

// Scenario is a list of blocks to replay.
type Scenario struct {
	Blocks []Block `yaml:"blocks"`
}

// Block is the content of one replayed block. Calls run first, then the mining updates are
// delivered as gatekeeper messages, then the block is finalized.
type Block struct {
	// Elapse is the number of seconds since the parent block.
	Elapse  *uint64                   `yaml:"elapse,omitempty"`
	Calls   []tx.Signed               `yaml:"calls,omitempty"`
	Updates []mining.MiningInfoUpdate `yaml:"updates,omitempty"`
}

func loadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return parseScenario(data)
}

func parseScenario(data []byte) (*Scenario, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var s Scenario
	if err := dec.Decode(&s); err != nil {
		return nil, errors.Wrap(err, "decode scenario")
	}
	return &s, nil
}
