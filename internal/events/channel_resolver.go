package events

// ChannelResolver determines which Redis channels to publish to
type ChannelResolver interface {
	ResolveChannels(env Envelope) []string
}

// AccountChannelResolver routes every thread envelope to the account's sync channel.
type AccountChannelResolver struct {
	AccountID string
}

func NewAccountChannelResolver(accountID string) *AccountChannelResolver {
	return &AccountChannelResolver{AccountID: accountID}
}

func (r *AccountChannelResolver) ResolveChannels(env Envelope) []string {
	switch env.AggregateType {
	case AggregateTypeThread:
		return []string{SyncChannel(r.AccountID)}
	default:
		return []string{ChannelSystemOutbox}
	}
}

func SyncChannel(accountID string) string {
	return ChannelPrefixSync + accountID
}
