package auth

import (
	"crypto/subtle"
	"fmt"
	"time"

	"s3authn/credentials"
	"s3authn/logger"
	"s3authn/signer"
)

// S3Verifier проверяет заявки S3: HMAC-SHA1 и срок действия подписи.
type S3Verifier struct{}

func (S3Verifier) Verify(cred credentials.AccessCredential, claim Claim, now time.Time) error {
	c, ok := claim.(*S3Claim)
	if !ok {
		return fmt.Errorf("%w: expected %s", ErrUnsupportedClaim, KindS3)
	}

	canonical, err := signer.Canonicalize(&c.Request)
	if err != nil {
		return err
	}
	expected, err := signer.Sign(cred.Secret, canonical)
	if err != nil {
		return fmt.Errorf("sign canonical request for %s: %w", cred.AccessKeyID, err)
	}

	if !equalSignatures(expected, c.Signature) {
		logger.Debug("S3 signature mismatch for %s", cred.AccessKeyID)
		return ErrSignatureMismatch
	}

	// Срок проверяется только у верной подписи: иначе поле expire не заверено.
	if c.Request.Expire != 0 && now.Unix() > c.Request.Expire {
		logger.Debug("S3 signature for %s expired at %d", cred.AccessKeyID, c.Request.Expire)
		return ErrSignatureExpired
	}
	return nil
}

// EC2Verifier проверяет заявки EC2 signature version 2.
type EC2Verifier struct{}

func (EC2Verifier) Verify(cred credentials.AccessCredential, claim Claim, now time.Time) error {
	c, ok := claim.(*EC2Claim)
	if !ok {
		return fmt.Errorf("%w: expected %s", ErrUnsupportedClaim, KindEC2)
	}

	canonical, err := signer.CanonicalizeEC2(&c.Request)
	if err != nil {
		return err
	}
	expected, err := signer.SignEC2(cred.Secret, canonical)
	if err != nil {
		return fmt.Errorf("sign ec2 request for %s: %w", cred.AccessKeyID, err)
	}

	if !equalSignatures(expected, c.Signature) {
		logger.Debug("EC2 signature mismatch for %s", cred.AccessKeyID)
		return ErrSignatureMismatch
	}
	return nil
}

// equalSignatures сравнивает подписи побайтно и за постоянное время.
func equalSignatures(expected, provided signer.Signature) bool {
	return subtle.ConstantTimeCompare([]byte(expected), []byte(provided)) == 1
}
