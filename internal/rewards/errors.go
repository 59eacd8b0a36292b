package rewards

import "errors"

var (
	ErrInvalidAmount               = errors.New("invalid amount")
	ErrInvalidAccount              = errors.New("invalid account")
	ErrInvalidDuration             = errors.New("invalid rewards duration")
	ErrPaused                      = errors.New("pool is paused")
	ErrNotPaused                   = errors.New("pool is not paused")
	ErrRewardAssetNotSupported     = errors.New("reward token not supported")
	ErrRewardAssetAlreadySupported = errors.New("rewards token already supported")
	ErrTooManyRewardAssets         = errors.New("too many reward tokens")
	ErrPreviousPeriodNotComplete   = errors.New("previous rewards not complete")
	ErrCannotRecoverStakingAsset   = errors.New("cannot withdraw staking token")
)
