package dto

// JobListQuery filters the jobs collection.
type JobListQuery struct {
	Status     string `form:"status" json:"status"`
	Date       string `form:"date" json:"date"`
	TechID     string `form:"techId" json:"techId"`
	Zip        string `form:"zip" json:"zip"`
	Unassigned bool   `form:"unassigned" json:"unassigned"`
	Page       int    `form:"page" json:"page"`
	PageSize   int    `form:"pageSize" json:"pageSize"`
	SortBy     string `form:"sortBy" json:"sortBy"`
	SortOrder  string `form:"sortOrder" json:"sortOrder"`
}

// TechnicianListQuery filters the technicians collection.
type TechnicianListQuery struct {
	Search    string `form:"search" json:"search"`
	Active    *bool  `form:"active" json:"active"`
	Skill     string `form:"skill" json:"skill"`
	Zone      string `form:"zone" json:"zone"`
	Page      int    `form:"page" json:"page"`
	PageSize  int    `form:"pageSize" json:"pageSize"`
	SortBy    string `form:"sortBy" json:"sortBy"`
	SortOrder string `form:"sortOrder" json:"sortOrder"`
}

// VehicleListQuery filters the vehicles collection.
type VehicleListQuery struct {
	Active      *bool `form:"active" json:"active"`
	MinCapacity int   `form:"minCapacity" json:"minCapacity"`
	Page        int   `form:"page" json:"page"`
	PageSize    int   `form:"pageSize" json:"pageSize"`
}

// TimeOffListQuery filters time-off entries by technician and date range.
// From defaults to today and To defaults to thirty days out.
type TimeOffListQuery struct {
	TechID string `form:"techId" json:"techId"`
	From   string `form:"from" json:"from"`
	To     string `form:"to" json:"to"`
}
