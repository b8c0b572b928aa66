package model

import "time"

// Client is a guest that bookings are made for.  Clients are identified
// by their phone number which is unique; initiating a payment for a
// known phone number updates the stored name and email instead of
// creating a second client.  Bookings reference clients one-way – a
// client row is never mutated when a booking is created.
//
// Fields:
//  ID          – primary key identifier.
//  Name        – full name of the guest.
//  Email       – contact email.
//  PhoneNumber – unique contact number.
//  CreatedAt   – creation timestamp.
//  UpdatedAt   – last update timestamp.
type Client struct {
    ID          uint64    // clients.id
    Name        string    // clients.name
    Email       string    // clients.email
    PhoneNumber string    // clients.phone_number (unique)
    CreatedAt   time.Time // clients.created_at
    UpdatedAt   time.Time // clients.updated_at
}
