package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"github.com/yukikurage/team-chat-api/internal/constants"
	"github.com/yukikurage/team-chat-api/internal/models"
	"github.com/yukikurage/team-chat-api/internal/notify"
	"github.com/yukikurage/team-chat-api/internal/permissions"
	"github.com/yukikurage/team-chat-api/internal/repository"
	"github.com/yukikurage/team-chat-api/internal/storage"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// recordingDispatcher captures enqueued jobs for assertions
type recordingDispatcher struct {
	jobs []notify.Job
}

func (d *recordingDispatcher) Enqueue(job notify.Job) {
	d.jobs = append(d.jobs, job)
}

// MessageServiceTestSuite defines the test suite for MessageService
type MessageServiceTestSuite struct {
	suite.Suite
	db          *gorm.DB
	channelRepo repository.ChannelRepository
	messageRepo repository.MessageRepository
	dispatcher  *recordingDispatcher
	service     *MessageService
}

// SetupTest runs before each test
func (suite *MessageServiceTestSuite) SetupTest() {
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
	)
	suite.Require().NoError(err)

	suite.channelRepo = repository.NewChannelRepository(suite.db)
	suite.messageRepo = repository.NewMessageRepository(suite.db)
	suite.dispatcher = &recordingDispatcher{}
	suite.service = NewMessageService(
		suite.channelRepo,
		suite.messageRepo,
		permissions.DefaultEngine(),
		storage.NewLocalBlobStore("http://localhost:8080/blobs"),
		suite.dispatcher,
	)
}

// TearDownTest runs after each test
func (suite *MessageServiceTestSuite) TearDownTest() {
	sqlDB, err := suite.db.DB()
	suite.Require().NoError(err)
	sqlDB.Close()
}

// Helper functions to create test data
func (suite *MessageServiceTestSuite) createTestUser(username string, role permissions.Role) *models.User {
	user := &models.User{
		Username:     username,
		PasswordHash: "hashedpassword",
		Role:         role,
		Status:       models.UserStatusActive,
	}
	suite.db.Create(user)
	return user
}

func (suite *MessageServiceTestSuite) createTestChannel(name string, creatorID uint64) *models.Channel {
	channel := &models.Channel{
		Type:      models.ChannelTypePublic,
		Name:      name,
		CreatedBy: creatorID,
	}
	member := &models.ChannelMember{
		UserID:   creatorID,
		Role:     models.ChannelRoleOwner,
		JoinedAt: time.Now(),
	}
	suite.Require().NoError(suite.channelRepo.CreateChannel(channel, member))
	return channel
}

func (suite *MessageServiceTestSuite) addTestMember(channelID, userID uint64) {
	suite.Require().NoError(suite.channelRepo.AddMember(&models.ChannelMember{
		ChannelID: channelID,
		UserID:    userID,
		Role:      models.ChannelRoleMember,
		JoinedAt:  time.Now(),
	}))
}

func (suite *MessageServiceTestSuite) sendTestMessage(sender *models.User, channelID uint64, content string) *MessageView {
	view, err := suite.service.SendMessage(sender, channelID, SendMessageInput{Content: content})
	suite.Require().NoError(err)
	return view
}

// TestSendMessage_Success tests sending and its side effects
func (suite *MessageServiceTestSuite) TestSendMessage_Success() {
	sender := suite.createTestUser("sender", permissions.RoleUser)
	channel := suite.createTestChannel("general", sender.ID)

	view, err := suite.service.SendMessage(sender, channel.ID, SendMessageInput{Content: "hello"})
	suite.Require().NoError(err)
	assert.NotZero(suite.T(), view.ID)
	assert.Equal(suite.T(), "hello", view.Content)
	assert.Equal(suite.T(), sender.ID, view.Sender.ID)

	// Channel activity marker advances
	updated, err := suite.channelRepo.FindByID(channel.ID)
	suite.Require().NoError(err)
	assert.NotNil(suite.T(), updated.LastMessageAt)

	// Sender's own read cursor advances with the send
	member, err := suite.channelRepo.FindMember(channel.ID, sender.ID)
	suite.Require().NoError(err)
	assert.NotNil(suite.T(), member.LastReadAt)

	// Fan-out job queued after the write
	suite.Require().Len(suite.dispatcher.jobs, 1)
	assert.Equal(suite.T(), view.ID, suite.dispatcher.jobs[0].MessageID)
	assert.Equal(suite.T(), sender.ID, suite.dispatcher.jobs[0].SenderID)
}

// TestSendMessage_NonMemberLeavesNoTrace tests that a rejected send
// writes nothing
func (suite *MessageServiceTestSuite) TestSendMessage_NonMemberLeavesNoTrace() {
	owner := suite.createTestUser("owner", permissions.RoleUser)
	outsider := suite.createTestUser("outsider", permissions.RoleUser)
	channel := suite.createTestChannel("general", owner.ID)

	_, err := suite.service.SendMessage(outsider, channel.ID, SendMessageInput{Content: "sneaky"})
	assert.ErrorIs(suite.T(), err, ErrNotChannelMember)

	var count int64
	suite.db.Model(&models.Message{}).Count(&count)
	assert.Zero(suite.T(), count)
	assert.Empty(suite.T(), suite.dispatcher.jobs)
}

// TestSendMessage_EmptyContent tests sending without content
func (suite *MessageServiceTestSuite) TestSendMessage_EmptyContent() {
	sender := suite.createTestUser("sender", permissions.RoleUser)
	channel := suite.createTestChannel("general", sender.ID)

	_, err := suite.service.SendMessage(sender, channel.ID, SendMessageInput{})

	assert.ErrorIs(suite.T(), err, ErrMessageContentRequired)
}

// TestSendMessage_ArchivedChannel tests sending into an archived channel
func (suite *MessageServiceTestSuite) TestSendMessage_ArchivedChannel() {
	sender := suite.createTestUser("sender", permissions.RoleUser)
	channel := suite.createTestChannel("general", sender.ID)
	now := time.Now()
	channel.ArchivedAt = &now
	suite.Require().NoError(suite.channelRepo.Update(channel))

	_, err := suite.service.SendMessage(sender, channel.ID, SendMessageInput{Content: "too late"})

	assert.ErrorIs(suite.T(), err, ErrChannelArchived)
}

// TestSendMessage_ReplyCrossChannel tests replying to a message from a
// different channel
func (suite *MessageServiceTestSuite) TestSendMessage_ReplyCrossChannel() {
	sender := suite.createTestUser("sender", permissions.RoleUser)
	channelA := suite.createTestChannel("channel-a", sender.ID)
	channelB := suite.createTestChannel("channel-b", sender.ID)
	parent := suite.sendTestMessage(sender, channelA.ID, "parent")

	_, err := suite.service.SendMessage(sender, channelB.ID, SendMessageInput{
		Content:   "reply",
		ReplyToID: &parent.ID,
	})

	assert.ErrorIs(suite.T(), err, ErrReplyDifferentChannel)
}

// TestSendMessage_WithAttachments tests attachment refs and URL resolution
func (suite *MessageServiceTestSuite) TestSendMessage_WithAttachments() {
	sender := suite.createTestUser("sender", permissions.RoleUser)
	channel := suite.createTestChannel("general", sender.ID)

	view, err := suite.service.SendMessage(sender, channel.ID, SendMessageInput{
		Content:     "with file",
		Attachments: []string{"abc123"},
	})
	suite.Require().NoError(err)
	suite.Require().Len(view.Attachments, 1)
	assert.Equal(suite.T(), "abc123", view.Attachments[0].BlobRef)
	assert.Equal(suite.T(), "http://localhost:8080/blobs/abc123", view.Attachments[0].URL)
}

// TestGetMessages_CursorChainCoversAll tests that chained pages cover
// every message exactly once, oldest first within each page
func (suite *MessageServiceTestSuite) TestGetMessages_CursorChainCoversAll() {
	sender := suite.createTestUser("sender", permissions.RoleUser)
	channel := suite.createTestChannel("general", sender.ID)
	m1 := suite.sendTestMessage(sender, channel.ID, "first")
	m2 := suite.sendTestMessage(sender, channel.ID, "second")
	m3 := suite.sendTestMessage(sender, channel.ID, "third")

	page, err := suite.service.GetMessages(sender, channel.ID, 2, nil)
	suite.Require().NoError(err)
	suite.Require().Len(page.Messages, 2)
	assert.True(suite.T(), page.HasMore)
	assert.Equal(suite.T(), m2.ID, page.Messages[0].ID)
	assert.Equal(suite.T(), m3.ID, page.Messages[1].ID)
	suite.Require().NotNil(page.NextCursor)
	assert.Equal(suite.T(), m2.ID, *page.NextCursor)

	older, err := suite.service.GetMessages(sender, channel.ID, 2, page.NextCursor)
	suite.Require().NoError(err)
	suite.Require().Len(older.Messages, 1)
	assert.False(suite.T(), older.HasMore)
	assert.Nil(suite.T(), older.NextCursor)
	assert.Equal(suite.T(), m1.ID, older.Messages[0].ID)
}

// TestGetMessages_NonMember tests history access without a membership
func (suite *MessageServiceTestSuite) TestGetMessages_NonMember() {
	owner := suite.createTestUser("owner", permissions.RoleUser)
	outsider := suite.createTestUser("outsider", permissions.RoleUser)
	channel := suite.createTestChannel("general", owner.ID)

	_, err := suite.service.GetMessages(outsider, channel.ID, 10, nil)

	assert.ErrorIs(suite.T(), err, ErrNotChannelMember)
}

// TestEditMessage_SenderOnly tests the edit permission
func (suite *MessageServiceTestSuite) TestEditMessage_SenderOnly() {
	sender := suite.createTestUser("sender", permissions.RoleUser)
	other := suite.createTestUser("other", permissions.RoleUser)
	channel := suite.createTestChannel("general", sender.ID)
	suite.addTestMember(channel.ID, other.ID)
	message := suite.sendTestMessage(sender, channel.ID, "original")

	_, err := suite.service.EditMessage(other, message.ID, "hijacked")
	assert.ErrorIs(suite.T(), err, ErrNotMessageSender)

	view, err := suite.service.EditMessage(sender, message.ID, "revised")
	suite.Require().NoError(err)
	assert.Equal(suite.T(), "revised", view.Content)
	assert.NotNil(suite.T(), view.EditedAt)
}

// TestEditMessage_DeletedRejected tests editing a deleted message
func (suite *MessageServiceTestSuite) TestEditMessage_DeletedRejected() {
	sender := suite.createTestUser("sender", permissions.RoleUser)
	channel := suite.createTestChannel("general", sender.ID)
	message := suite.sendTestMessage(sender, channel.ID, "original")
	suite.Require().NoError(suite.service.DeleteMessage(sender, message.ID))

	_, err := suite.service.EditMessage(sender, message.ID, "too late")

	assert.ErrorIs(suite.T(), err, ErrMessageAlreadyDeleted)
}

// TestDeleteMessage_OwnAndForeign tests the ownership-scoped delete rule
func (suite *MessageServiceTestSuite) TestDeleteMessage_OwnAndForeign() {
	sender := suite.createTestUser("sender", permissions.RoleUser)
	other := suite.createTestUser("other", permissions.RoleUser)
	channel := suite.createTestChannel("general", sender.ID)
	suite.addTestMember(channel.ID, other.ID)
	message := suite.sendTestMessage(sender, channel.ID, "target")

	// A regular user cannot delete someone else's message
	err := suite.service.DeleteMessage(other, message.ID)
	assert.ErrorIs(suite.T(), err, ErrMessageDeleteForbidden)

	// The sender can
	err = suite.service.DeleteMessage(sender, message.ID)
	assert.NoError(suite.T(), err)

	// Deleting twice is rejected
	err = suite.service.DeleteMessage(sender, message.ID)
	assert.ErrorIs(suite.T(), err, ErrMessageAlreadyDeleted)
}

// TestDeleteMessage_AdminDeletesForeign tests moderation deletes
func (suite *MessageServiceTestSuite) TestDeleteMessage_AdminDeletesForeign() {
	sender := suite.createTestUser("sender", permissions.RoleUser)
	admin := suite.createTestUser("admin", permissions.RoleAdmin)
	channel := suite.createTestChannel("general", sender.ID)
	message := suite.sendTestMessage(sender, channel.ID, "target")

	err := suite.service.DeleteMessage(admin, message.ID)

	assert.NoError(suite.T(), err)
}

// TestDeletedMessage_RedactedForRegularReaders tests that deleted
// messages stay in history as placeholders but keep content for
// privileged readers
func (suite *MessageServiceTestSuite) TestDeletedMessage_RedactedForRegularReaders() {
	sender := suite.createTestUser("sender", permissions.RoleUser)
	admin := suite.createTestUser("admin", permissions.RoleAdmin)
	channel := suite.createTestChannel("general", sender.ID)
	suite.addTestMember(channel.ID, admin.ID)
	message := suite.sendTestMessage(sender, channel.ID, "secret")
	suite.Require().NoError(suite.service.DeleteMessage(sender, message.ID))

	page, err := suite.service.GetMessages(sender, channel.ID, 10, nil)
	suite.Require().NoError(err)
	suite.Require().Len(page.Messages, 1)
	assert.True(suite.T(), page.Messages[0].Deleted)
	assert.Equal(suite.T(), constants.RedactedMessageContent, page.Messages[0].Content)
	assert.Nil(suite.T(), page.Messages[0].Sender)

	adminPage, err := suite.service.GetMessages(admin, channel.ID, 10, nil)
	suite.Require().NoError(err)
	suite.Require().Len(adminPage.Messages, 1)
	assert.True(suite.T(), adminPage.Messages[0].Deleted)
	assert.Equal(suite.T(), "secret", adminPage.Messages[0].Content)
}

// TestReactions_DuplicateAndRemove tests the reaction lifecycle
func (suite *MessageServiceTestSuite) TestReactions_DuplicateAndRemove() {
	sender := suite.createTestUser("sender", permissions.RoleUser)
	channel := suite.createTestChannel("general", sender.ID)
	message := suite.sendTestMessage(sender, channel.ID, "hello")

	err := suite.service.AddReaction(sender, message.ID, "thumbsup")
	assert.NoError(suite.T(), err)

	err = suite.service.AddReaction(sender, message.ID, "thumbsup")
	assert.ErrorIs(suite.T(), err, ErrDuplicateReaction)

	// A different emoji from the same user is fine
	err = suite.service.AddReaction(sender, message.ID, "heart")
	assert.NoError(suite.T(), err)

	err = suite.service.RemoveReaction(sender, message.ID, "thumbsup")
	assert.NoError(suite.T(), err)

	err = suite.service.RemoveReaction(sender, message.ID, "thumbsup")
	assert.ErrorIs(suite.T(), err, ErrReactionNotFound)
}

// TestAddReaction_NonMember tests reacting without a membership
func (suite *MessageServiceTestSuite) TestAddReaction_NonMember() {
	sender := suite.createTestUser("sender", permissions.RoleUser)
	outsider := suite.createTestUser("outsider", permissions.RoleUser)
	channel := suite.createTestChannel("general", sender.ID)
	message := suite.sendTestMessage(sender, channel.ID, "hello")

	err := suite.service.AddReaction(outsider, message.ID, "thumbsup")

	assert.ErrorIs(suite.T(), err, ErrNotChannelMember)
}

// TestSuite runs the test suite
func TestMessageServiceTestSuite(t *testing.T) {
	suite.Run(t, new(MessageServiceTestSuite))
}
