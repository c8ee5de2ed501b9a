package domain

// RoleAdmin is the only role minted by passcode verification.
const RoleAdmin = "admin"
