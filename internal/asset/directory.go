package asset

import (
	"bytes"
	"fmt"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// Directory resolves asset identities to tokens.
type Directory struct {
	mu     sync.RWMutex
	tokens map[common.Address]Token
}

func NewDirectory() *Directory {
	return &Directory{tokens: make(map[common.Address]Token)}
}

// Register adds token under its own address.
func (d *Directory) Register(token Token) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.tokens[token.Address()]; ok {
		return fmt.Errorf("asset %s already registered", token.Address().Hex())
	}
	d.tokens[token.Address()] = token
	return nil
}

// Token returns the token registered at address.
func (d *Directory) Token(address common.Address) (Token, error) {
	d.mu.RLock()
	token, ok := d.tokens[address]
	d.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAsset, address.Hex())
	}
	return token, nil
}

// Tokens returns all registered tokens ordered by address.
func (d *Directory) Tokens() []Token {
	d.mu.RLock()
	out := make([]Token, 0, len(d.tokens))
	for _, token := range d.tokens {
		out = append(out, token)
	}
	d.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		return bytes.Compare(out[i].Address().Bytes(), out[j].Address().Bytes()) < 0
	})
	return out
}
