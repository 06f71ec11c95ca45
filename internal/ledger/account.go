package ledger

import (
	"fmt"
	"strconv"
	"strings"
)

// AccountScope represents the top-level account namespace
type AccountScope uint8

const (
	AccountScopePayer AccountScope = iota
	AccountScopeSystem
	AccountScopeExternal
)

// AccountSubType represents the account purpose
type AccountSubType uint8

const (
	// Payer sub-types
	SubTypeClaim AccountSubType = iota // reward tokens owed to / delivered to a payer

	// System sub-types
	SubTypeSystemFeeIntake  // entry-fee lamports awaiting conversion
	SubTypeSystemTransFees  // running trans-fee total
	SubTypeSystemTreasury   // purchased tokens before the retention split
	SubTypeSystemRoundPool  // distributed at round end, reset each round
	SubTypeSystemReserve    // perpetual reserve, accumulates across rounds

	// External sub-types (boundary accounts, normally negative)
	SubTypeExternalPayers  // source of entry fees
	SubTypeExternalVenue   // market venue the fees are swapped through
	SubTypeExternalPayouts // sink for delivered tokens
)

// AssetID maps asset strings to numeric IDs
type AssetID uint16

var (
	assetToID = map[string]AssetID{
		"XPO": 1,
		"SOL": 2,
	}
	idToAsset = map[AssetID]string{
		1: "XPO",
		2: "SOL",
	}
)

func GetAssetID(asset string) (AssetID, bool) {
	id, ok := assetToID[asset]
	return id, ok
}

func GetAssetName(id AssetID) (string, bool) {
	name, ok := idToAsset[id]
	return name, ok
}

// AccountKey is the in-memory key for balance tracking
type AccountKey struct {
	Scope   AccountScope
	PayerID int64 // chat-platform payer id; zero for system/external accounts
	SubType AccountSubType
	AssetID AssetID
}

// NewPayerAccountKey creates a key for payer accounts
func NewPayerAccountKey(payerID int64, subType AccountSubType, assetID AssetID) AccountKey {
	return AccountKey{
		Scope:   AccountScopePayer,
		PayerID: payerID,
		SubType: subType,
		AssetID: assetID,
	}
}

// NewSystemAccountKey creates a key for system accounts
func NewSystemAccountKey(subType AccountSubType, assetID AssetID) AccountKey {
	return AccountKey{
		Scope:   AccountScopeSystem,
		SubType: subType,
		AssetID: assetID,
	}
}

// NewExternalAccountKey creates a key for external boundary accounts
func NewExternalAccountKey(subType AccountSubType, assetID AssetID) AccountKey {
	return AccountKey{
		Scope:   AccountScopeExternal,
		SubType: subType,
		AssetID: assetID,
	}
}

// AccountPath returns the string representation for storage/logging
func (k AccountKey) AccountPath() string {
	assetName, _ := GetAssetName(k.AssetID)

	switch k.Scope {
	case AccountScopePayer:
		return fmt.Sprintf("payer:%s:%s:%s", strconv.FormatInt(k.PayerID, 10), k.subTypeName(), assetName)
	case AccountScopeSystem:
		return fmt.Sprintf("system:%s:%s", k.subTypeName(), assetName)
	case AccountScopeExternal:
		return fmt.Sprintf("external:%s:%s", k.subTypeName(), assetName)
	}
	return "unknown"
}

// ParseAccountPath is the inverse of AccountPath, used on snapshot restore.
func ParseAccountPath(path string) (AccountKey, error) {
	parts := strings.Split(path, ":")

	switch {
	case len(parts) == 4 && parts[0] == "payer":
		payerID, err := strconv.ParseInt(parts[1], 10, 64)
		if err != nil {
			return AccountKey{}, fmt.Errorf("bad payer id in path %q: %w", path, err)
		}
		subType, ok := subTypeFromName(parts[2])
		if !ok {
			return AccountKey{}, fmt.Errorf("unknown sub-type in path %q", path)
		}
		assetID, ok := GetAssetID(parts[3])
		if !ok {
			return AccountKey{}, fmt.Errorf("unknown asset in path %q", path)
		}
		return NewPayerAccountKey(payerID, subType, assetID), nil

	case len(parts) == 3 && (parts[0] == "system" || parts[0] == "external"):
		subType, ok := subTypeFromName(parts[1])
		if !ok {
			return AccountKey{}, fmt.Errorf("unknown sub-type in path %q", path)
		}
		assetID, ok := GetAssetID(parts[2])
		if !ok {
			return AccountKey{}, fmt.Errorf("unknown asset in path %q", path)
		}
		if parts[0] == "system" {
			return NewSystemAccountKey(subType, assetID), nil
		}
		return NewExternalAccountKey(subType, assetID), nil
	}

	return AccountKey{}, fmt.Errorf("malformed account path %q", path)
}

func subTypeFromName(name string) (AccountSubType, bool) {
	switch name {
	case "claim":
		return SubTypeClaim, true
	case "fee_intake":
		return SubTypeSystemFeeIntake, true
	case "trans_fees":
		return SubTypeSystemTransFees, true
	case "treasury":
		return SubTypeSystemTreasury, true
	case "round_pool":
		return SubTypeSystemRoundPool, true
	case "reserve":
		return SubTypeSystemReserve, true
	case "payers":
		return SubTypeExternalPayers, true
	case "venue":
		return SubTypeExternalVenue, true
	case "payouts":
		return SubTypeExternalPayouts, true
	}
	return 0, false
}

func (k AccountKey) subTypeName() string {
	switch k.SubType {
	case SubTypeClaim:
		return "claim"
	case SubTypeSystemFeeIntake:
		return "fee_intake"
	case SubTypeSystemTransFees:
		return "trans_fees"
	case SubTypeSystemTreasury:
		return "treasury"
	case SubTypeSystemRoundPool:
		return "round_pool"
	case SubTypeSystemReserve:
		return "reserve"
	case SubTypeExternalPayers:
		return "payers"
	case SubTypeExternalVenue:
		return "venue"
	case SubTypeExternalPayouts:
		return "payouts"
	default:
		return "unknown"
	}
}
