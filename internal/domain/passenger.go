package domain

import "time"

type Passenger struct {
	ID             string    `json:"id"`
	FirstName      string    `json:"first_name"`
	LastName       string    `json:"last_name"`
	Email          string    `json:"email"`
	PhoneNumber    string    `json:"phone_number"`
	PassportNumber string    `json:"passport_number"`
	DateOfBirth    time.Time `json:"date_of_birth"`
}

// PassengerDetails is the caller-submitted part of a passenger record.
type PassengerDetails struct {
	FirstName      string
	LastName       string
	Email          string
	PhoneNumber    string
	PassportNumber string
	DateOfBirth    time.Time
}

func (p *Passenger) Apply(d PassengerDetails) {
	p.FirstName = d.FirstName
	p.LastName = d.LastName
	p.Email = d.Email
	p.PhoneNumber = d.PhoneNumber
	p.PassportNumber = d.PassportNumber
	p.DateOfBirth = d.DateOfBirth
}

func (p Passenger) FullName() string {
	return p.FirstName + " " + p.LastName
}
