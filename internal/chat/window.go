package chat

// TailWindow computes the slice bounds for tail-based message pagination over
// a thread of total records ordered oldest-first. Page 1 is the most recent
// limit records; higher pages extend backward in time, matching a chat UI
// that loads earlier history on scroll-up. hasMore reports whether older
// records remain before the window.
func TailWindow(total, page, limit int) (start, end int, hasMore bool) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 1
	}
	start = total - page*limit
	if start < 0 {
		start = 0
	}
	end = total - (page-1)*limit
	if end < 0 {
		end = 0
	}
	if end < start {
		end = start
	}
	return start, end, start > 0
}
