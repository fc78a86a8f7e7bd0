package events

import (
	"strconv"
	"strings"

	"stablevault/core/types"
)

func formatAmount(v types.Value) string {
	return v.String()
}

func formatVaultID(id uint64) string {
	return strconv.FormatUint(id, 10)
}

func normalizeAsset(asset string) string {
	return strings.TrimSpace(asset)
}
