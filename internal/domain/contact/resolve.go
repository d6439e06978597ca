package contact

import (
	"strconv"

	"github.com/purplepatch/notify-hub/internal/domain/notification"
	"github.com/purplepatch/notify-hub/internal/domain/user"
)

// Address is a resolved physical delivery address for one channel. Extra
// carries channel hints, e.g. the Discord DM-open path.
type Address struct {
	To    string
	Extra map[string]string
}

// Resolve produces the best delivery address for a user on the given
// channel. profile may be nil. The second return is false when no address
// exists; the dispatch coordinator then skips the user without aborting
// the batch.
//
// Resolution order per channel:
//
//	telegram → profile telegram.chat_id
//	whatsapp → profile whatsapp.phone, else the user's raw phone number
//	discord  → profile discord.dm_channel_id, else discord.user_id (DM-open)
//	mail     → the user's email address
func Resolve(u *user.User, profile *Profile, ch notification.ChannelType) (Address, bool) {
	switch ch {
	case notification.ChannelTelegram:
		if profile != nil && profile.Telegram != nil && profile.Telegram.ChatID != 0 {
			return Address{To: strconv.FormatInt(profile.Telegram.ChatID, 10)}, true
		}

	case notification.ChannelWhatsApp:
		if profile != nil && profile.WhatsApp != nil && profile.WhatsApp.Phone != "" {
			return Address{To: profile.WhatsApp.Phone}, true
		}
		if u.PhoneNumber != "" {
			return Address{To: u.PhoneNumber}, true
		}

	case notification.ChannelDiscord:
		if profile != nil && profile.Discord != nil {
			if profile.Discord.DMChannelID != "" {
				return Address{To: profile.Discord.DMChannelID}, true
			}
			if profile.Discord.UserID != "" {
				return Address{
					Extra: map[string]string{
						notification.ExtraDiscordUserID:   profile.Discord.UserID,
						notification.ExtraDiscordCreateDM: "true",
					},
				}, true
			}
		}

	case notification.ChannelMail:
		if u.Email != "" {
			return Address{To: u.Email}, true
		}
	}

	return Address{}, false
}
