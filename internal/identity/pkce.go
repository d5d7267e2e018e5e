package identity

import (
	"golang.org/x/oauth2"
)

// ChallengeMethodS256 is the only PKCE method either provider is asked for.
const ChallengeMethodS256 = "S256"

// PKCEChallenge is a code verifier and its derived challenge.
type PKCEChallenge struct {
	// CodeVerifier stays on our side until the code exchange
	CodeVerifier string `json:"code_verifier"`
	// CodeChallenge goes into the authorize URL
	CodeChallenge       string `json:"code_challenge"`
	CodeChallengeMethod string `json:"code_challenge_method"`
}

// GeneratePKCE generates a new PKCE verifier and S256 challenge.
func GeneratePKCE() *PKCEChallenge {
	verifier := oauth2.GenerateVerifier()
	return &PKCEChallenge{
		CodeVerifier:        verifier,
		CodeChallenge:       oauth2.S256ChallengeFromVerifier(verifier),
		CodeChallengeMethod: ChallengeMethodS256,
	}
}

// Flow binds the verifier to the redirect URL of the sign-in it belongs to.
func (c *PKCEChallenge) Flow(redirectURL string) Flow {
	return Flow{Verifier: c.CodeVerifier, RedirectURL: redirectURL}
}
