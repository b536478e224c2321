package content

// resolveAuthor pattern-matches the author field variants the backend emits.
// Branches are checked in order and the first match wins; the ordering is a
// compatibility contract with the upstream API, so treat it as load-bearing.
func resolveAuthor(r RawRecord) Author {
	// 1. Populated userId object (current API shape).
	if obj, ok := r.obj("userId"); ok {
		return authorFromObject(obj)
	}

	// 2. Populated author object.
	if obj, ok := r.obj("author"); ok {
		return authorFromObject(obj)
	}

	// 3. Identity flattened onto the record itself.
	if r.has("_id", "id") && r.has("name", "username") {
		return Author{
			ID:           r.str("_id", "id"),
			DisplayName:  displayName(r),
			ProfileImage: r.str("profileImage", "avatar", "image"),
		}
	}

	// 4. Legacy submission records.
	if name := r.str("submitterName"); name != "" {
		return Author{ID: orUnknown(r.str("submitterId")), DisplayName: name}
	}

	// 5. Denormalized author columns.
	if name := r.str("authorName"); name != "" {
		return Author{ID: orUnknown(r.str("authorId")), DisplayName: name}
	}

	// 6. Bare username with whatever id is around.
	if username := r.str("username"); username != "" {
		return Author{ID: orUnknown(r.str("userId", "_id")), DisplayName: username}
	}

	// 7. Nothing resolvable.
	return Author{ID: UnknownAuthorID, DisplayName: AnonymousName}
}

// authorFromObject builds an Author from a nested user/author object.
func authorFromObject(obj map[string]any) Author {
	raw := RawRecord(obj)
	return Author{
		ID:           orUnknown(raw.str("_id", "id")),
		DisplayName:  displayName(raw),
		ProfileImage: raw.str("profileImage", "avatar", "image"),
	}
}

// displayName applies the per-branch name fallback chain:
// name, then username or email, then Anonymous.
func displayName(r RawRecord) string {
	if name := r.str("name"); name != "" {
		return name
	}
	if name := r.str("username", "email"); name != "" {
		return name
	}
	return AnonymousName
}

func orUnknown(id string) string {
	if id == "" {
		return UnknownAuthorID
	}
	return id
}
