package services

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"github.com/yukikurage/team-chat-api/internal/models"
	"github.com/yukikurage/team-chat-api/internal/notify"
	"github.com/yukikurage/team-chat-api/internal/permissions"
	"github.com/yukikurage/team-chat-api/internal/repository"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// NotificationServiceTestSuite defines the test suite for NotificationService
type NotificationServiceTestSuite struct {
	suite.Suite
	db               *gorm.DB
	channelRepo      repository.ChannelRepository
	messageRepo      repository.MessageRepository
	notificationRepo repository.NotificationRepository
	service          *NotificationService
}

// SetupTest runs before each test
func (suite *NotificationServiceTestSuite) SetupTest() {
	var err error

	suite.db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	suite.Require().NoError(err)

	err = suite.db.AutoMigrate(
		&models.User{},
		&models.Channel{},
		&models.ChannelMember{},
		&models.Message{},
		&models.MessageAttachment{},
		&models.MessageReaction{},
		&models.Notification{},
	)
	suite.Require().NoError(err)

	suite.channelRepo = repository.NewChannelRepository(suite.db)
	suite.messageRepo = repository.NewMessageRepository(suite.db)
	suite.notificationRepo = repository.NewNotificationRepository(suite.db)
	userRepo := repository.NewUserRepository(suite.db)
	suite.service = NewNotificationService(suite.notificationRepo, suite.channelRepo, suite.messageRepo, userRepo)
}

// TearDownTest runs after each test
func (suite *NotificationServiceTestSuite) TearDownTest() {
	sqlDB, err := suite.db.DB()
	suite.Require().NoError(err)
	sqlDB.Close()
}

// Helper functions to create test data
func (suite *NotificationServiceTestSuite) createTestUser(username string) *models.User {
	user := &models.User{
		Username:     username,
		PasswordHash: "hashedpassword",
		Role:         permissions.RoleUser,
		Status:       models.UserStatusActive,
	}
	suite.db.Create(user)
	return user
}

func (suite *NotificationServiceTestSuite) createTestChannel(name string, memberIDs ...uint64) *models.Channel {
	channel := &models.Channel{
		Type:      models.ChannelTypePublic,
		Name:      name,
		CreatedBy: memberIDs[0],
	}
	now := time.Now()
	members := make([]*models.ChannelMember, len(memberIDs))
	for i, id := range memberIDs {
		role := models.ChannelRoleMember
		if i == 0 {
			role = models.ChannelRoleOwner
		}
		members[i] = &models.ChannelMember{UserID: id, Role: role, JoinedAt: now}
	}
	suite.Require().NoError(suite.channelRepo.CreateChannel(channel, members...))
	return channel
}

func (suite *NotificationServiceTestSuite) createTestMessage(channelID, senderID uint64, content string) *models.Message {
	message := &models.Message{
		ChannelID: channelID,
		SenderID:  senderID,
		Content:   content,
	}
	suite.Require().NoError(suite.messageRepo.Create(message, true))
	return message
}

// TestDispatchMessage_FanOutExcludesSender tests that every member except
// the sender receives one notification
func (suite *NotificationServiceTestSuite) TestDispatchMessage_FanOutExcludesSender() {
	sender := suite.createTestUser("sender")
	memberA := suite.createTestUser("member-a")
	memberB := suite.createTestUser("member-b")
	channel := suite.createTestChannel("general", sender.ID, memberA.ID, memberB.ID)
	message := suite.createTestMessage(channel.ID, sender.ID, "hello everyone")

	err := suite.service.DispatchMessage(notify.Job{
		MessageID: message.ID,
		ChannelID: channel.ID,
		SenderID:  sender.ID,
	})
	suite.Require().NoError(err)

	var total int64
	suite.db.Model(&models.Notification{}).Count(&total)
	assert.Equal(suite.T(), int64(2), total)

	var senderRows int64
	suite.db.Model(&models.Notification{}).Where("user_id = ?", sender.ID).Count(&senderRows)
	assert.Zero(suite.T(), senderRows)

	notifications, err := suite.notificationRepo.ListByUser(memberA.ID, false, 10)
	suite.Require().NoError(err)
	suite.Require().Len(notifications, 1)
	assert.Equal(suite.T(), "general", notifications[0].Title)
	assert.Equal(suite.T(), "hello everyone", notifications[0].Message)
	assert.Equal(suite.T(), models.NotificationTypeNewMessage, notifications[0].Type)
	assert.False(suite.T(), notifications[0].Read)
	suite.Require().NotNil(notifications[0].ChannelID)
	assert.Equal(suite.T(), channel.ID, *notifications[0].ChannelID)
}

// TestDispatchMessage_DirectUsesSenderName tests that direct channel
// notifications carry the sender's name as the title
func (suite *NotificationServiceTestSuite) TestDispatchMessage_DirectUsesSenderName() {
	alice := suite.createTestUser("alice")
	bob := suite.createTestUser("bob")

	channel := &models.Channel{
		Type:        models.ChannelTypeDirect,
		CreatedBy:   alice.ID,
		RecipientID: &bob.ID,
	}
	now := time.Now()
	created, err := suite.channelRepo.CreateDirect(channel,
		&models.ChannelMember{UserID: alice.ID, Role: models.ChannelRoleMember, JoinedAt: now},
		&models.ChannelMember{UserID: bob.ID, Role: models.ChannelRoleMember, JoinedAt: now},
	)
	suite.Require().NoError(err)
	message := suite.createTestMessage(created.ID, alice.ID, "hi bob")

	err = suite.service.DispatchMessage(notify.Job{
		MessageID: message.ID,
		ChannelID: created.ID,
		SenderID:  alice.ID,
	})
	suite.Require().NoError(err)

	notifications, err := suite.notificationRepo.ListByUser(bob.ID, false, 10)
	suite.Require().NoError(err)
	suite.Require().Len(notifications, 1)
	assert.Equal(suite.T(), "alice", notifications[0].Title)
}

// TestDispatchMessage_PreviewTruncated tests long content truncation
func (suite *NotificationServiceTestSuite) TestDispatchMessage_PreviewTruncated() {
	sender := suite.createTestUser("sender")
	reader := suite.createTestUser("reader")
	channel := suite.createTestChannel("general", sender.ID, reader.ID)
	long := strings.Repeat("x", 500)
	message := suite.createTestMessage(channel.ID, sender.ID, long)

	err := suite.service.DispatchMessage(notify.Job{
		MessageID: message.ID,
		ChannelID: channel.ID,
		SenderID:  sender.ID,
	})
	suite.Require().NoError(err)

	notifications, err := suite.notificationRepo.ListByUser(reader.ID, false, 10)
	suite.Require().NoError(err)
	suite.Require().Len(notifications, 1)
	assert.Less(suite.T(), len([]rune(notifications[0].Message)), 500)
	assert.True(suite.T(), strings.HasSuffix(notifications[0].Message, "…"))
}

// TestListNotifications_UnreadFilterAndCount tests the feed filters
func (suite *NotificationServiceTestSuite) TestListNotifications_UnreadFilterAndCount() {
	sender := suite.createTestUser("sender")
	reader := suite.createTestUser("reader")
	channel := suite.createTestChannel("general", sender.ID, reader.ID)

	for i := 0; i < 2; i++ {
		message := suite.createTestMessage(channel.ID, sender.ID, "ping")
		suite.Require().NoError(suite.service.DispatchMessage(notify.Job{
			MessageID: message.ID,
			ChannelID: channel.ID,
			SenderID:  sender.ID,
		}))
	}

	notifications, unread, err := suite.service.ListNotifications(reader, false, 10)
	suite.Require().NoError(err)
	assert.Len(suite.T(), notifications, 2)
	assert.Equal(suite.T(), int64(2), unread)

	suite.Require().NoError(suite.service.MarkRead(reader, notifications[0].ID))

	onlyUnread, unread, err := suite.service.ListNotifications(reader, true, 10)
	suite.Require().NoError(err)
	assert.Len(suite.T(), onlyUnread, 1)
	assert.Equal(suite.T(), int64(1), unread)
}

// TestMarkRead_ForeignNotification tests marking another user's
// notification as read
func (suite *NotificationServiceTestSuite) TestMarkRead_ForeignNotification() {
	sender := suite.createTestUser("sender")
	reader := suite.createTestUser("reader")
	intruder := suite.createTestUser("intruder")
	channel := suite.createTestChannel("general", sender.ID, reader.ID)
	message := suite.createTestMessage(channel.ID, sender.ID, "ping")
	suite.Require().NoError(suite.service.DispatchMessage(notify.Job{
		MessageID: message.ID,
		ChannelID: channel.ID,
		SenderID:  sender.ID,
	}))

	notifications, _, err := suite.service.ListNotifications(reader, false, 10)
	suite.Require().NoError(err)
	suite.Require().Len(notifications, 1)

	err = suite.service.MarkRead(intruder, notifications[0].ID)
	assert.ErrorIs(suite.T(), err, ErrNotificationNotFound)
}

// TestMarkAllRead tests the bulk read operation
func (suite *NotificationServiceTestSuite) TestMarkAllRead() {
	sender := suite.createTestUser("sender")
	reader := suite.createTestUser("reader")
	channel := suite.createTestChannel("general", sender.ID, reader.ID)

	for i := 0; i < 3; i++ {
		message := suite.createTestMessage(channel.ID, sender.ID, "ping")
		suite.Require().NoError(suite.service.DispatchMessage(notify.Job{
			MessageID: message.ID,
			ChannelID: channel.ID,
			SenderID:  sender.ID,
		}))
	}

	suite.Require().NoError(suite.service.MarkAllRead(reader))

	_, unread, err := suite.service.ListNotifications(reader, false, 10)
	suite.Require().NoError(err)
	assert.Zero(suite.T(), unread)
}

// TestSuite runs the test suite
func TestNotificationServiceTestSuite(t *testing.T) {
	suite.Run(t, new(NotificationServiceTestSuite))
}
