package repositories

import (
	"fmt"
	"time"

	"finwell/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type walletRepository struct {
	db *gorm.DB
}

func NewWalletRepository(db *gorm.DB) WalletRepository {
	return &walletRepository{
		db: db,
	}
}

// GetOrCreate inserts the wallet row if the (owner_type, owner_id,
// credit_kind) triple is absent and returns the row either way. The
// insert uses ON CONFLICT DO NOTHING against the unique index, so two
// racing callers both land on the same row; there is no read-then-write
// window.
func (r *walletRepository) GetOrCreate(ownerType models.OwnerType, ownerID uint, kind models.CreditKind) (*models.CreditWallet, error) {
	wallet := models.CreditWallet{
		OwnerType: ownerType,
		OwnerID:   ownerID,
		Kind:      kind,
	}
	err := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "owner_type"}, {Name: "owner_id"}, {Name: "credit_kind"}},
		DoNothing: true,
	}).Create(&wallet).Error
	if err != nil {
		return nil, fmt.Errorf("failed to create wallet: %w", err)
	}

	// On conflict the insert reports no row; re-read to get the winner.
	return r.GetByOwner(ownerType, ownerID, kind)
}

func (r *walletRepository) GetByID(id uint) (*models.CreditWallet, error) {
	var wallet models.CreditWallet
	if err := r.db.First(&wallet, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrWalletNotFound
		}
		return nil, fmt.Errorf("failed to get wallet: %w", err)
	}
	return &wallet, nil
}

func (r *walletRepository) GetByOwner(ownerType models.OwnerType, ownerID uint, kind models.CreditKind) (*models.CreditWallet, error) {
	var wallet models.CreditWallet
	err := r.db.Where("owner_type = ? AND owner_id = ? AND credit_kind = ?", ownerType, ownerID, kind).
		First(&wallet).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrWalletNotFound
		}
		return nil, fmt.Errorf("failed to get wallet: %w", err)
	}
	return &wallet, nil
}

func (r *walletRepository) ListByOwner(ownerType models.OwnerType, ownerID uint) ([]models.CreditWallet, error) {
	var wallets []models.CreditWallet
	err := r.db.Where("owner_type = ? AND owner_id = ?", ownerType, ownerID).
		Order("credit_kind").
		Find(&wallets).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list wallets: %w", err)
	}
	return wallets, nil
}

// LockByID loads the wallet row under SELECT ... FOR UPDATE. Callers
// must be inside ExecuteInTransaction; the lock serializes the balance
// check against concurrent appends to the same wallet.
func (r *walletRepository) LockByID(id uint) (*models.CreditWallet, error) {
	var wallet models.CreditWallet
	err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).First(&wallet, id).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrWalletNotFound
		}
		return nil, fmt.Errorf("failed to lock wallet: %w", err)
	}
	return &wallet, nil
}

func (r *walletRepository) SetExpiry(id uint, expiresAt *time.Time) error {
	result := r.db.Model(&models.CreditWallet{}).
		Where("id = ?", id).
		Update("expires_at", expiresAt)
	if result.Error != nil {
		return fmt.Errorf("failed to set wallet expiry: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrWalletNotFound
	}
	return nil
}

func (r *walletRepository) AppendTransaction(tx *models.CreditTransaction) error {
	if err := r.db.Create(tx).Error; err != nil {
		return fmt.Errorf("failed to append transaction: %w", err)
	}
	return nil
}

func (r *walletRepository) SumDeltas(walletID uint) (int64, error) {
	var total int64
	err := r.db.Model(&models.CreditTransaction{}).
		Where("wallet_id = ?", walletID).
		Select("COALESCE(SUM(delta), 0)").
		Scan(&total).Error
	if err != nil {
		return 0, fmt.Errorf("failed to sum deltas: %w", err)
	}
	return total, nil
}

func (r *walletRepository) SetCachedBalance(walletID uint, balance int64) error {
	result := r.db.Model(&models.CreditWallet{}).
		Where("id = ?", walletID).
		Update("balance", balance)
	if result.Error != nil {
		return fmt.Errorf("failed to update cached balance: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrWalletNotFound
	}
	return nil
}

func (r *walletRepository) ListTransactions(walletID uint, limit, offset int) ([]models.CreditTransaction, error) {
	var txs []models.CreditTransaction
	err := r.db.Where("wallet_id = ?", walletID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Offset(offset).
		Find(&txs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	return txs, nil
}

func (r *walletRepository) GetTransactionByReference(reference, reason string) (*models.CreditTransaction, error) {
	var txn models.CreditTransaction
	err := r.db.Where("reference = ? AND reason = ?", reference, reason).First(&txn).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrTransactionNotFound
		}
		return nil, fmt.Errorf("failed to get transaction by reference: %w", err)
	}
	return &txn, nil
}

func (r *walletRepository) KindTotals(kind models.CreditKind) (*KindTotals, error) {
	totals := KindTotals{Kind: kind}

	err := r.db.Model(&models.CreditTransaction{}).
		Joins("JOIN credit_wallets ON credit_wallets.id = credit_transactions.wallet_id").
		Where("credit_wallets.credit_kind = ? AND credit_wallets.owner_type = ? AND credit_transactions.reason IN ?",
			kind, models.OwnerTypeOrg, []string{models.ReasonIssuance, models.ReasonPurchase}).
		Select("COALESCE(SUM(credit_transactions.delta), 0)").
		Scan(&totals.Issued).Error
	if err != nil {
		return nil, fmt.Errorf("failed to sum issued credits: %w", err)
	}

	held := func(ownerType models.OwnerType) (int64, error) {
		var sum int64
		err := r.db.Model(&models.CreditTransaction{}).
			Joins("JOIN credit_wallets ON credit_wallets.id = credit_transactions.wallet_id").
			Where("credit_wallets.credit_kind = ? AND credit_wallets.owner_type = ?", kind, ownerType).
			Select("COALESCE(SUM(credit_transactions.delta), 0)").
			Scan(&sum).Error
		return sum, err
	}

	if totals.OrgHeld, err = held(models.OwnerTypeOrg); err != nil {
		return nil, fmt.Errorf("failed to sum org balances: %w", err)
	}
	if totals.UserHeld, err = held(models.OwnerTypeUser); err != nil {
		return nil, fmt.Errorf("failed to sum user balances: %w", err)
	}

	// Consumed is every debit on a user wallet, regardless of the
	// free-text reason the consumption carried.
	err = r.db.Model(&models.CreditTransaction{}).
		Joins("JOIN credit_wallets ON credit_wallets.id = credit_transactions.wallet_id").
		Where("credit_wallets.credit_kind = ? AND credit_wallets.owner_type = ? AND credit_transactions.delta < 0",
			kind, models.OwnerTypeUser).
		Select("COALESCE(-SUM(credit_transactions.delta), 0)").
		Scan(&totals.Consumed).Error
	if err != nil {
		return nil, fmt.Errorf("failed to sum consumption: %w", err)
	}

	return &totals, nil
}

func (r *walletRepository) ExecuteInTransaction(fn func(WalletRepository) error) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		txRepo := &walletRepository{db: tx}
		return fn(txRepo)
	})
}
