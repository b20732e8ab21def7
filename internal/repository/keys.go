package repository

import (
	"fmt"

	"sentinal-threads/internal/domain/interaction"

	"github.com/google/uuid"
)

// Key layout:
//
//	thread:<thread>                       thread record
//	interaction:<id>                      interaction record
//	thread_ix:<thread>:<key>              every interaction, by ordering key
//	thread_inbox:<thread>:<key>           inbox-appearing interactions only
//	disappearing:<thread>                 disappearing-message configuration
//	sequence:ordering_key                 last assigned ordering key
//	outbox:record:<id>                    sync record
//	outbox:pending:<created_ns>:<id>      pending sync records, oldest first
const (
	threadPrefix         = "thread:"
	interactionPrefix    = "interaction:"
	threadIndexPrefix    = "thread_ix:"
	threadInboxPrefix    = "thread_inbox:"
	disappearingPrefix   = "disappearing:"
	orderingSequenceKey  = "sequence:ordering_key"
	outboxRecordPrefix   = "outbox:record:"
	outboxPendingPrefix  = "outbox:pending:"
	orderingKeyFormatLen = 20
)

func threadKey(id uuid.UUID) []byte {
	return []byte(threadPrefix + id.String())
}

func interactionKey(id uuid.UUID) []byte {
	return []byte(interactionPrefix + id.String())
}

func threadIndexPrefixFor(threadID uuid.UUID) []byte {
	return []byte(threadIndexPrefix + threadID.String() + ":")
}

func threadInboxPrefixFor(threadID uuid.UUID) []byte {
	return []byte(threadInboxPrefix + threadID.String() + ":")
}

func orderedKey(prefix []byte, key interaction.OrderingKey) []byte {
	return append(append([]byte(nil), prefix...), fmt.Sprintf("%0*d", orderingKeyFormatLen, uint64(key))...)
}

func disappearingKey(threadID uuid.UUID) []byte {
	return []byte(disappearingPrefix + threadID.String())
}

func outboxRecordKey(id uuid.UUID) []byte {
	return []byte(outboxRecordPrefix + id.String())
}

func outboxPendingKey(createdNs int64, id uuid.UUID) []byte {
	return []byte(fmt.Sprintf("%s%020d:%s", outboxPendingPrefix, createdNs, id.String()))
}

// prefixEnd returns the smallest key greater than every key with prefix.
func prefixEnd(prefix []byte) []byte {
	end := append([]byte(nil), prefix...)
	for i := len(end) - 1; i >= 0; i-- {
		end[i]++
		if end[i] != 0 {
			return end[:i+1]
		}
	}
	return nil
}
