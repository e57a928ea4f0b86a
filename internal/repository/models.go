package repository

import "github.com/weiawesome/wes-io-dorm/internal/domain"

// Models lists every GORM model owned by this package's repositories.
func Models() []interface{} {
	return []interface{}{
		&domain.UserModel{},
		&domain.ConversationModel{},
		&domain.ParticipantModel{},
		&domain.MessageModel{},
	}
}
