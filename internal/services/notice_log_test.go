package services

import (
	"fmt"
	"github.com/maxaizer/recruit-pipeline/internal/board"
	"github.com/stretchr/testify/assert"
	"testing"
)

func Test_NoticeLog_ShouldKeepMostRecentNotices(t *testing.T) {
	assert := assert.New(t)

	notices := NewNoticeLog(3)
	go notices.Run()

	for i := 1; i <= 3; i++ {
		notices.Notify(board.Notice{Level: board.NoticeInfo, Text: fmt.Sprintf("n%d", i)})
	}
	notices.Close()
	<-notices.Done

	for i := 4; i <= 5; i++ {
		notices.Notify(board.Notice{Level: board.NoticeWarning, Text: fmt.Sprintf("n%d", i)})
	}

	recent := notices.Recent()
	assert.Len(recent, 3)
	assert.Equal("n1", recent[0].Text)
	assert.Equal("n3", recent[2].Text)
}

func Test_NoticeLog_WhenBufferFull_ShouldDropNewNotices(t *testing.T) {
	notices := NewNoticeLog(2)

	notices.Notify(board.Notice{Text: "a"})
	notices.Notify(board.Notice{Text: "b"})
	notices.Notify(board.Notice{Text: "dropped, buffer full"})
	go notices.Run()
	notices.Close()
	<-notices.Done

	assert.Equal(t, []board.Notice{{Text: "a"}, {Text: "b"}}, notices.Recent())
}
