package models

type Alert struct {
	BaseModel
	UserID    string  `json:"user_id" gorm:"not null;index"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Delivered bool    `json:"delivered" gorm:"default:false"`
}

// CreateAlert appends an alert to history. Alerts are never updated or
// deleted once written.
func CreateAlert(alert *Alert) error {
	return db.Create(alert).Error
}

func FindAlert(id string) (*Alert, error) {
	alert := Alert{}
	err := db.First(&alert, "id = ?", id).Error
	if err != nil {
		return nil, err
	}

	return &alert, nil
}

func AlertsFor(userID string) ([]Alert, error) {
	alerts := []Alert{}
	err := db.Order("created_at desc").Limit(500).Find(&alerts, "user_id = ?", userID).Error
	if err != nil {
		return nil, err
	}

	return alerts, nil
}
