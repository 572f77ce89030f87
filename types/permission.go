package types

import "math/big"

// SignerPermissionAction enumerates what a SignerPermissionRequest does to
// the named signer's standing on the smart account.
type SignerPermissionAction int

const (
	SignerPermissionSession SignerPermissionAction = 0
	SignerPermissionGrant   SignerPermissionAction = 1
	SignerPermissionRevoke  SignerPermissionAction = 2
)

// SignerPermissionRequest is signed via EIP-712 under domain
// ("Account", "1", chainId, account_address) and submitted to
// account.setPermissionsForSigner(req, sig) (spec §3, §4.7).
type SignerPermissionRequest struct {
	Signer                string                  `json:"signer" validate:"required"`
	IsAdmin               SignerPermissionAction  `json:"isAdmin"`
	ApprovedTargets       []string                `json:"approvedTargets"`
	NativeTokenLimitPerTx *big.Int                `json:"nativeTokenLimitPerTx"`
	PermissionStart       int64                   `json:"permissionStart"`
	PermissionEnd         int64                   `json:"permissionEnd"`
	ReqValidityStart      int64                   `json:"reqValidityStart"`
	ReqValidityEnd        int64                   `json:"reqValidityEnd"`
	UID                   [16]byte                `json:"uid"`
}

// ActiveSigner is one entry of GetAllActiveSigners().
type ActiveSigner struct {
	Signer                string   `json:"signer"`
	ApprovedTargets       []string `json:"approvedTargets"`
	NativeTokenLimitPerTx *big.Int `json:"nativeTokenLimitPerTx"`
	PermissionStart       int64    `json:"permissionStart"`
	PermissionEnd         int64    `json:"permissionEnd"`
}
