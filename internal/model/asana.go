package model

// Tipos de resposta da API REST do Asana (v1.0)

// NextPage contém o cursor de paginação do Asana
type NextPage struct {
	Offset string `json:"offset"`
	Path   string `json:"path"`
	URI    string `json:"uri"`
}

// PortfolioItemsResponse representa a resposta de /portfolios/{gid}/items
type PortfolioItemsResponse struct {
	Data     []PortfolioItem `json:"data"`
	NextPage *NextPage       `json:"next_page"`
}

// PortfolioItem representa um projeto dentro do portfolio
type PortfolioItem struct {
	GID     string `json:"gid"`
	Name    string `json:"name"`
	DueOn   string `json:"due_on"`
	DueDate string `json:"due_date"`
}

// TaskListResponse representa a resposta de /projects/{gid}/tasks
type TaskListResponse struct {
	Data     []AsanaTask `json:"data"`
	NextPage *NextPage   `json:"next_page"`
}

// AsanaTask representa uma tarefa como retornada pelo Asana
type AsanaTask struct {
	GID          string             `json:"gid"`
	Name         string             `json:"name"`
	Completed    bool               `json:"completed"`
	DueOn        string             `json:"due_on"`
	CreatedAt    string             `json:"created_at"`
	CompletedAt  string             `json:"completed_at"`
	Assignee     *NamedRef          `json:"assignee"`
	Memberships  []Membership       `json:"memberships"`
	CustomFields []AsanaCustomField `json:"custom_fields"`
	Tags         []NamedRef         `json:"tags"`
	NumSubtasks  int                `json:"num_subtasks"`
}

// NamedRef é uma referência compacta (gid + nome)
type NamedRef struct {
	GID  string `json:"gid"`
	Name string `json:"name"`
}

// Membership associa a tarefa a uma seção
type Membership struct {
	Section *NamedRef `json:"section"`
}

// AsanaCustomField representa um campo personalizado da tarefa
type AsanaCustomField struct {
	GID          string `json:"gid"`
	Name         string `json:"name"`
	DisplayValue string `json:"display_value"`
}

// ProjectResponse representa a resposta de /projects/{gid}
type ProjectResponse struct {
	Data ProjectInfo `json:"data"`
}

// ProjectInfo contém os detalhes de um projeto
type ProjectInfo struct {
	GID     string     `json:"gid"`
	Name    string     `json:"name"`
	Owner   *NamedRef  `json:"owner"`
	Members []NamedRef `json:"members"`
	DueOn   string     `json:"due_on"`
}

// UserResponse representa a resposta de /users/me
type UserResponse struct {
	Data NamedRef `json:"data"`
}
