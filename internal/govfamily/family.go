package govfamily

type Action string

const (
	ActionGenesis        Action = "genesis"
	ActionPurchase       Action = "purchase"
	ActionToggleSale     Action = "toggle-sale"
	ActionCreateProposal Action = "create-proposal"
	ActionVote           Action = "vote"
	ActionCloseProposal  Action = "close-proposal"
)

func (a Action) IsValid() bool {
	switch a {
	case ActionGenesis, ActionPurchase, ActionToggleSale, ActionCreateProposal, ActionVote, ActionCloseProposal:
		return true
	}
	return false
}

const (
	FamilyName    string = "share-governance"
	FamilyVersion string = "1.0"

	// to hold the share balance of a holder
	holderPrefix = "holder"
	// to hold the proposal tallies and state
	proposalPrefix = "proposal"
	// to hold the owner, sale flag and issued supply
	settingsPrefix = "settings"
)
