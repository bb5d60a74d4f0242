package solana

// SignatureInfo from getSignaturesForAddress.
type SignatureInfo struct {
	Signature string
	Slot      int64
	BlockTime *int64
	Err       interface{}
}

// SignaturesOpts defines optional pagination parameters for getSignaturesForAddress.
type SignaturesOpts struct {
	Before string // Start searching backwards from this signature
	Until  string // Search until this signature
	Limit  int    // Maximum number of signatures to return
}

// Transaction represents a confirmed Solana transaction.
type Transaction struct {
	Signature string
	Slot      int64
	BlockTime int64
	Meta      *TransactionMeta
	Message   *TransactionMessage
}

// TransactionMeta holds execution metadata. Pre and post balances are in
// lamports, indexed in the same order as Message.AccountKeys.
type TransactionMeta struct {
	Err          interface{}
	PreBalances  []uint64
	PostBalances []uint64
}

// TransactionMessage holds the account keys of a transaction. By Solana
// convention the first key is the fee payer.
type TransactionMessage struct {
	AccountKeys []string
}
