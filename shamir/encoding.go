package shamir

import (
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/ewsdk/wallet-core/types"
)

// EncodeShare renders a share as the fixed textual "<idHex>:<yHex>" form
// (spec §7): a single hex digit for the share id (1, 2 or 3) followed by
// the 16-byte y-coordinate as 32 lowercase hex characters.
func EncodeShare(share types.Share) string {
	return fmt.Sprintf("%x:%s", share.X, hex.EncodeToString(share.Y))
}

// DecodeShare parses the textual form produced by EncodeShare. Fails with
// types.ErrShareCorrupt on any malformed input.
func DecodeShare(text string) (types.Share, error) {
	parts := strings.SplitN(text, ":", 2)
	if len(parts) != 2 {
		return types.Share{}, fmt.Errorf("%w: expected \"<id>:<y>\", got %q", types.ErrShareCorrupt, text)
	}

	id, err := strconv.ParseUint(parts[0], 16, 8)
	if err != nil {
		return types.Share{}, fmt.Errorf("%w: invalid share id: %v", types.ErrShareCorrupt, err)
	}
	y, err := hex.DecodeString(parts[1])
	if err != nil {
		return types.Share{}, fmt.Errorf("%w: invalid y coordinate: %v", types.ErrShareCorrupt, err)
	}

	return types.Share{ID: types.ShareID(id), X: id, Y: y}, nil
}

func base64URLEncode(b []byte) string {
	return base64.URLEncoding.WithPadding(base64.NoPadding).EncodeToString(b)
}

func base64URLDecode(s string) ([]byte, error) {
	return base64.URLEncoding.WithPadding(base64.NoPadding).DecodeString(s)
}
