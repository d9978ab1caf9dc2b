package models

import "time"

// Post is a text entry published by a user, optionally into a group and
// optionally with an attached image.
//
// PubDate is written once at creation and is the sole sort key (newest
// first, ties broken by id). AuthorID is always taken from the caller's
// identity and never changes afterwards. A post dies with its author;
// deleting a group only detaches it (group_id goes NULL).
type Post struct {
	ID       uint      `gorm:"primaryKey" json:"id"`
	Text     string    `gorm:"type:text;not null" json:"text"`
	PubDate  time.Time `gorm:"index;autoCreateTime;<-:create" json:"pub_date"`
	AuthorID uint      `gorm:"index;not null;<-:create" json:"author_id"`
	Author   User      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"author"`
	GroupID  *uint     `gorm:"index" json:"group_id"`
	Group    *Group    `gorm:"constraint:OnUpdate:CASCADE,OnDelete:SET NULL;" json:"group,omitempty"`
	Image    string    `gorm:"size:512" json:"image,omitempty"`

	Comments []Comment `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"comments,omitempty"`
}
