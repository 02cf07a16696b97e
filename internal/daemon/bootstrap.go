package daemon

import (
	"context"

	"go.uber.org/zap"

	"github.com/velorahq/crewchat/internal/rest"
	"github.com/velorahq/crewchat/internal/state"
)

// InitialLoad pulls every collection from the REST collaborator into
// the store. Each read degrades to an empty collection on failure so
// startup never hard-fails on a flaky API.
func InitialLoad(ctx context.Context, client *rest.Client, store *state.Store, logger *zap.Logger) {
	if rooms, err := client.ListChatRooms(ctx); err != nil {
		logger.Warn("initial chat room load failed", zap.Error(err))
	} else {
		store.Dispatch(state.SetChatRooms{Rooms: rooms})
	}

	if calls, err := client.ListCalls(ctx); err != nil {
		logger.Warn("initial call load failed", zap.Error(err))
	} else {
		store.Dispatch(state.SetCalls{Calls: calls})
	}

	if meetings, err := client.ListMeetings(ctx); err != nil {
		logger.Warn("initial meeting load failed", zap.Error(err))
	} else {
		store.Dispatch(state.SetMeetings{Meetings: meetings})
	}

	if contacts, err := client.ListContacts(ctx); err != nil {
		logger.Warn("initial contact load failed", zap.Error(err))
	} else {
		store.Dispatch(state.SetContacts{Contacts: contacts})
	}

	packs, err := client.ListStickerPacks(ctx)
	if err != nil {
		logger.Warn("sticker pack load failed", zap.Error(err))
		return
	}
	store.Dispatch(state.SetStickerPacks{Packs: packs})
	for _, pack := range packs {
		stickers, err := client.ListPackStickers(ctx, pack.ID)
		if err != nil {
			logger.Warn("sticker load failed", zap.String("pack", pack.ID), zap.Error(err))
			continue
		}
		store.Dispatch(state.SetPackStickers{PackID: pack.ID, Stickers: stickers})
	}
}
