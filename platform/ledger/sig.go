/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package ledger

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"sync"

	"github.com/pkg/errors"

	"github.com/P0ntiff/seclending-smart-client/platform/view/view"
)

// Signer signs a message on behalf of a party
type Signer interface {
	Sign(message []byte) ([]byte, error)
}

// Verifier checks a signature over a message
type Verifier interface {
	Verify(message, sigma []byte) error
}

// VerifierProvider resolves the verifier of a party
type VerifierProvider interface {
	GetVerifier(id view.Identity) (Verifier, error)
}

// SigService keeps the signers this node controls and the verifiers of
// every party it talks to.
type SigService struct {
	mu        sync.RWMutex
	signers   map[string]Signer
	verifiers map[string]Verifier
}

func NewSigService() *SigService {
	return &SigService{
		signers:   map[string]Signer{},
		verifiers: map[string]Verifier{},
	}
}

// RegisterSigner binds a signer to an identity this node controls
func (s *SigService) RegisterSigner(id view.Identity, signer Signer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.signers[id.UniqueID()] = signer
}

// RegisterVerifier binds a verifier to a party's identity
func (s *SigService) RegisterVerifier(id view.Identity, verifier Verifier) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.verifiers[id.UniqueID()] = verifier
}

// GetSigner returns the signer bound to the passed identity
func (s *SigService) GetSigner(id view.Identity) (Signer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	signer, ok := s.signers[id.UniqueID()]
	if !ok {
		return nil, errors.Errorf("no signer registered for [%s]", id)
	}
	return signer, nil
}

// GetVerifier returns the verifier bound to the passed identity
func (s *SigService) GetVerifier(id view.Identity) (Verifier, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	verifier, ok := s.verifiers[id.UniqueID()]
	if !ok {
		return nil, errors.Errorf("no verifier registered for [%s]", id)
	}
	return verifier, nil
}

// ECDSASigner signs with an ECDSA P-256 key. The scheme is an opaque
// capability as far as the protocols are concerned.
type ECDSASigner struct {
	key *ecdsa.PrivateKey
}

// ECDSAVerifier verifies signatures produced by the matching ECDSASigner
type ECDSAVerifier struct {
	key *ecdsa.PublicKey
}

// NewECDSASigner generates a fresh key pair and returns the signer and its verifier
func NewECDSASigner() (*ECDSASigner, *ECDSAVerifier, error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed generating ecdsa key")
	}
	return &ECDSASigner{key: key}, &ECDSAVerifier{key: &key.PublicKey}, nil
}

func (s *ECDSASigner) Sign(message []byte) ([]byte, error) {
	digest := sha256.Sum256(message)
	return ecdsa.SignASN1(rand.Reader, s.key, digest[:])
}

func (v *ECDSAVerifier) Verify(message, sigma []byte) error {
	digest := sha256.Sum256(message)
	if !ecdsa.VerifyASN1(v.key, digest[:], sigma) {
		return errors.New("signature verification failed")
	}
	return nil
}
