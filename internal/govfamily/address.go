package govfamily

import (
	"share-governance/internal/hashing"
	"strconv"
	"sync"
)

var (
	familyHash         = ""
	holderPrefixHash   = ""
	proposalPrefixHash = ""
	settingsPrefixHash = ""

	calcOnce sync.Once
)

func initHashVars() {
	calcOnce.Do(func() {
		familyHash = hashing.CalculateFromStr(FamilyName)
		holderPrefixHash = hashing.CalculateFromStr(holderPrefix)
		proposalPrefixHash = hashing.CalculateFromStr(proposalPrefix)
		settingsPrefixHash = hashing.CalculateFromStr(settingsPrefix)
	})
}

// Namespace is the address prefix shared by every state entry of the family
func Namespace() string {
	initHashVars()
	return familyHash[0:6]
}

func GetHolderAddress(holder string) (address string) {
	initHashVars()

	holderHash := hashing.CalculateFromStr(holder)

	return familyHash[0:6] + holderPrefixHash[0:6] + holderHash[0:58]
}

func GetProposalAddress(proposalID int) (address string) {
	initHashVars()

	proposalIDHash := hashing.CalculateFromStr(strconv.Itoa(proposalID))

	return familyHash[0:6] + proposalPrefixHash[0:6] + proposalIDHash[0:58]
}

func GetSettingsAddress() (address string) {
	initHashVars()

	return familyHash[0:6] + settingsPrefixHash[0:64]
}

// GetAddresses lists the state entries an action reads and writes
func GetAddresses(action Action, caller string, proposalID int) []string {
	switch action {
	case ActionPurchase:
		return []string{GetSettingsAddress(), GetHolderAddress(caller)}
	case ActionCreateProposal, ActionVote:
		return []string{GetHolderAddress(caller), GetProposalAddress(proposalID)}
	case ActionCloseProposal:
		return []string{GetSettingsAddress(), GetHolderAddress(caller), GetProposalAddress(proposalID)}
	default:
		return []string{GetSettingsAddress()}
	}
}
