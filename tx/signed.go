// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package tx

import (
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/enclavenet/enclave/enclave"
)

// Signed is a call together with the account that submitted it.
type Signed struct {
	Origin enclave.Address
	Call   Call
}

type signedYAML struct {
	Origin enclave.Address `yaml:"origin"`
	Call   string          `yaml:"call"`
	Args   yaml.Node       `yaml:"args,omitempty"`
}

// UnmarshalYAML decodes the form
//
//	origin: alice
//	call: contribute
//	args: {pid: 0, amount: "100"}
func (s *Signed) UnmarshalYAML(node *yaml.Node) error {
	var raw signedYAML
	if err := node.Decode(&raw); err != nil {
		return err
	}
	call, err := NewCall(raw.Call)
	if err != nil {
		return errors.Wrapf(err, "line %d", node.Line)
	}
	if raw.Args.Kind != 0 {
		if err := raw.Args.Decode(call); err != nil {
			return errors.Wrapf(err, "decode args of %s", raw.Call)
		}
	}
	s.Origin = raw.Origin
	s.Call = call
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (s Signed) MarshalYAML() (any, error) {
	if s.Call == nil {
		return nil, errors.New("nil call")
	}
	out := signedYAML{Origin: s.Origin, Call: s.Call.Name()}
	if err := out.Args.Encode(s.Call); err != nil {
		return nil, errors.Wrapf(err, "encode args of %s", s.Call.Name())
	}
	return &out, nil
}
