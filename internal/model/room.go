package model

import "time"

// RoomType enumerates the categories a room can be sold as.  The values
// mirror the `room_type` column which is stored as a string enum.
type RoomType string

const (
    RoomTypeSingle RoomType = "SINGLE" // one guest
    RoomTypeDouble RoomType = "DOUBLE" // two guests
    RoomTypeSuite  RoomType = "SUITE"  // multi-room suite
    RoomTypeDeluxe RoomType = "DELUXE" // premium room
)

// Room represents a rentable hotel room as stored in the `rooms` table.
// The room number is unique across the hotel.  Prices are stored in
// cents to avoid floating point rounding.  A room flagged as under
// maintenance admits no new bookings regardless of dates.
//
// Fields:
//  ID                 – primary key identifier.
//  RoomType           – category of the room (SINGLE, DOUBLE, ...).
//  RoomNumber         – unique human-facing room number, e.g. "101".
//  Description        – optional free text shown to guests.
//  ImageURL           – optional picture of the room.
//  PriceCentsPerNight – nightly rate in cents.
//  UnderMaintenance   – when true the room cannot be booked.
//  CreatedAt          – creation timestamp.
//  UpdatedAt          – last update timestamp.
type Room struct {
    ID                 uint64    // rooms.id
    RoomType           RoomType  // rooms.room_type
    RoomNumber         string    // rooms.room_number (unique)
    Description        string    // rooms.description
    ImageURL           string    // rooms.image_url
    PriceCentsPerNight uint32    // rooms.price_cents_per_night
    UnderMaintenance   bool      // rooms.under_maintenance
    CreatedAt          time.Time // rooms.created_at
    UpdatedAt          time.Time // rooms.updated_at
}
