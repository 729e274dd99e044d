package pdfops

import (
	"context"

	"github.com/yourorg/pdf-service/pkg/artifact"
	"github.com/yourorg/pdf-service/pkg/logging"
)

// Protect encrypts the input with a user password, an owner password and a
// permission mask. An empty owner password is derived from the user password.
func (s *Service) Protect(ctx context.Context, req ProtectRequest) (*Result, error) {
	if err := checkInput(&req, req.Input); err != nil {
		return nil, err
	}
	owner := ownerOrAnonymous(req.Owner)

	var res *Result
	err := s.run(ctx, OpProtect, owner, func(ctx context.Context) error {
		doc, err := s.codec.Decode(req.Input.Name, req.Input.Data)
		if err != nil {
			return err
		}
		locked, err := s.codec.Encrypt(doc.Bytes(), req.Password, req.OwnerPassword, req.Permissions)
		if err != nil {
			return err
		}
		s.logger.Debug("Document encrypted",
			logging.NewField("pages", doc.PageCount()),
			logging.NewField("permissions", req.Permissions.Mask()),
		)

		a, err := s.saveOne(ctx, owner, OpProtect, artifact.Item{
			Filename:    baseName(req.Input.Name) + "_protected.pdf",
			ContentType: contentTypePDF,
			Data:        locked,
			PageCount:   doc.PageCount(),
		})
		if err != nil {
			return err
		}
		res = &Result{Artifact: a, PageCount: doc.PageCount()}
		return nil
	})
	return res, err
}

// Unlock decrypts the input with either of its passwords and stores the
// re-encoded plain document. Unencrypted input is re-encoded as is.
func (s *Service) Unlock(ctx context.Context, req UnlockRequest) (*Result, error) {
	if err := checkInput(&req, req.Input); err != nil {
		return nil, err
	}
	owner := ownerOrAnonymous(req.Owner)

	var res *Result
	err := s.run(ctx, OpUnlock, owner, func(ctx context.Context) error {
		doc, err := s.codec.Decrypt(req.Input.Name, req.Input.Data, req.Password)
		if err != nil {
			return err
		}
		plain, err := s.codec.Encode(doc.Pages())
		if err != nil {
			return err
		}

		a, err := s.saveOne(ctx, owner, OpUnlock, artifact.Item{
			Filename:    baseName(req.Input.Name) + "_unlocked.pdf",
			ContentType: contentTypePDF,
			Data:        plain,
			PageCount:   doc.PageCount(),
		})
		if err != nil {
			return err
		}
		res = &Result{Artifact: a, PageCount: doc.PageCount()}
		return nil
	})
	return res, err
}
