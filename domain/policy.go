package domain

// IsCreator reports whether userID created the board.
func IsCreator(userID string, board Board) bool {
	return userID != "" && board.CreatedBy == userID
}

// IsMember reports whether the user has the board in their board set.
// The creator is a member as well.
func IsMember(user *User, board Board) bool {
	return user != nil && user.HasBoard(board.ID)
}

// CanDeleteBoard reports whether a board is empty: no tasks and no members
// other than the creator, identified by creatorEmail. When deletion is
// blocked the returned tag names the reason.
func CanDeleteBoard(hasTasks bool, members []User, creatorEmail string) (bool, ErrorTag) {
	if hasTasks {
		return false, TagBoardHasTasks
	}
	if HasNonCreatorMembers(members, creatorEmail) {
		return false, TagBoardHasMembers
	}
	return true, ""
}

// CanViewBoard reports whether the user may open the board view.
// A false result is a soft deny: callers navigate home.
func CanViewBoard(user *User, board Board) bool {
	return IsMember(user, board)
}

// HasNonCreatorMembers reports whether anyone besides the creator holds the board.
func HasNonCreatorMembers(members []User, creatorEmail string) bool {
	for _, m := range members {
		if m.Email != creatorEmail {
			return true
		}
	}
	return false
}
