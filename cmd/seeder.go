package cmd

import (
	"fmt"
	"log"

	coreuser "github.com/frahmantamala/lab-borrowing/internal/core/user"
	equipmentDatamodel "github.com/frahmantamala/lab-borrowing/internal/core/datamodel/equipment"
	userDatamodel "github.com/frahmantamala/lab-borrowing/internal/core/datamodel/user"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with sample data",
	Long:  `Seed the database with sample users and equipment for development and testing purposes.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(configPath)
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}

		db, err := initDB(cfg.Database)
		if err != nil {
			log.Fatalf("failed to init db: %v", err)
		}
		defer db.Close()

		gdb, err := initGorm(db)
		if err != nil {
			log.Fatalf("failed to init gorm: %v", err)
		}

		if err := seed(gdb, clearData); err != nil {
			log.Fatalf("seeding failed: %v", err)
		}
		fmt.Println("Seed data ready")
	},
}

var seedUsers = []struct {
	Email      string
	Name       string
	Role       coreuser.Role
	StudentID  string
	Department string
}{
	{"admin@lab.test", "Lab Admin", coreuser.RoleAdmin, "", "Laboratorium Terpadu"},
	{"staff@lab.test", "Lab Staff", coreuser.RoleLabStaff, "", "Laboratorium Terpadu"},
	{"dosen@lab.test", "Dr. Dosen", coreuser.RoleLecturer, "", "Teknik Elektro"},
	{"mahasiswa@lab.test", "Mahasiswa Satu", coreuser.RoleStudent, "2021001", "Teknik Elektro"},
}

var seedEquipment = []equipmentDatamodel.Equipment{
	{Name: "Digital Oscilloscope", SerialNumber: "OSC-001", Category: "measurement", Location: "Lab A", Stock: 5, Status: "available", Condition: "good"},
	{Name: "Function Generator", SerialNumber: "FG-001", Category: "measurement", Location: "Lab A", Stock: 3, Status: "available", Condition: "excellent"},
	{Name: "Digital Multimeter", SerialNumber: "DMM-001", Category: "measurement", Location: "Lab B", Stock: 10, Status: "available", Condition: "good"},
	{Name: "Soldering Station", SerialNumber: "SLD-001", Category: "tools", Location: "Lab B", Stock: 4, Status: "available", Condition: "fair"},
	{Name: "Spectrum Analyzer", SerialNumber: "SPA-001", Category: "measurement", Location: "Lab C", Stock: 0, Status: "maintenance", Condition: "poor"},
}

func seed(db *gorm.DB, clear bool) error {
	return db.Transaction(func(tx *gorm.DB) error {
		if clear {
			for _, table := range []string{"reservations", "notifications", "borrowing_transactions", "equipment", "users"} {
				if err := tx.Exec(fmt.Sprintf("DELETE FROM %s", table)).Error; err != nil {
					return fmt.Errorf("clear %s: %w", table, err)
				}
			}
			fmt.Println("Existing data cleared")
		}

		hash, err := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("hash seed password: %w", err)
		}

		for _, u := range seedUsers {
			model := userDatamodel.User{
				Email:        u.Email,
				Name:         u.Name,
				PasswordHash: string(hash),
				Role:         string(u.Role),
				StudentID:    u.StudentID,
				Department:   u.Department,
				IsActive:     true,
			}
			res := tx.Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "email"}}, DoNothing: true}).Create(&model)
			if res.Error != nil {
				return fmt.Errorf("insert user %s: %w", u.Email, res.Error)
			}
			if res.RowsAffected > 0 {
				fmt.Printf("Seeded %s user: %s\n", u.Role, u.Email)
			}
		}

		for i := range seedEquipment {
			item := seedEquipment[i]
			res := tx.Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "serial_number"}}, DoNothing: true}).Create(&item)
			if res.Error != nil {
				return fmt.Errorf("insert equipment %s: %w", item.SerialNumber, res.Error)
			}
			if res.RowsAffected > 0 {
				fmt.Printf("Seeded equipment: %s\n", item.Name)
			}
		}
		return nil
	})
}
