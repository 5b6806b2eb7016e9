package memory

import "context"

// TxManager serializes transactions with a dedicated mutex so repository
// methods stay callable outside a transaction (timer callbacks, watchdog
// writes) without deadlocking. Atomicity across repos is not emulated;
// conflict detection rides on the tree version check, as in production.
type TxManager struct {
	store *Store
}

func NewTxManager(store *Store) TxManager {
	return TxManager{store: store}
}

func (t TxManager) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	t.store.txMu.Lock()
	defer t.store.txMu.Unlock()
	return fn(ctx)
}
